package joinstore

import (
	"github.com/rzpsarthak13/joinstore/internal/changefeed"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/query"
	"github.com/rzpsarthak13/joinstore/internal/store"
)

// Types shared with the internal packages.
type (
	Identity    = core.Identity
	Record      = core.Record
	Entry       = core.Entry
	Column      = core.Column
	JoinConfig  = core.JoinConfig
	JoinDef     = core.JoinDef
	ChangeEvent = core.ChangeEvent
	ChangeQueue = core.ChangeQueue

	Table     = store.Table
	TableSpec = store.TableConfig
	JoinTerm  = store.JoinTerm

	QueryDef = query.Def
	JoinSpec = query.JoinSpec
	Item     = query.Item
	ItemJSON = query.ItemJSON
	Selector = query.Selector
	Choose   = query.Choose
	Sort     = query.Sort
	Map      = query.Map

	// DrainHandler receives each committed change event.
	DrainHandler = changefeed.Handler
)

// Join definition constructors.
var (
	IdentityDef = core.IdentityDef
	FieldDef    = core.FieldDef
	KeyGenDef   = core.KeyGenDef
	Via         = core.Via
)

// Sentinel errors, for use with errors.Is.
var (
	ErrTableNotFound     = core.ErrTableNotFound
	ErrJoinNotFound      = core.ErrJoinNotFound
	ErrAmbiguousJoin     = core.ErrAmbiguousJoin
	ErrRecordNotFound    = core.ErrRecordNotFound
	ErrRecordExists      = core.ErrRecordExists
	ErrStrategyViolation = core.ErrStrategyViolation
	ErrValidation        = core.ErrValidation
	ErrInvalidConfig     = core.ErrInvalidConfig
)
