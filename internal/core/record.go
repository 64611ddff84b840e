package core

import (
	"math"
	"reflect"

	"github.com/pkg/errors"
)

// Identity is the unique key of a record within one table. Identities must be
// comparable; numeric identities are compared after NormalizeKey.
type Identity = interface{}

// Record is a single row. Values are whatever the caller stored; field joins
// read scalars or []interface{} out of them.
type Record = map[string]interface{}

// Entry pairs an identity with its record.
type Entry struct {
	Identity Identity
	Record   Record
}

// NormalizeKey maps every integer kind, and floats holding an integral value,
// to int64 so that 100, int32(100) and the float64 100 decoded from JSON are
// the same key. Other values are returned unchanged.
func NormalizeKey(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return normalizeUint(uint64(n))
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return normalizeUint(n)
	case float32:
		return normalizeFloat(float64(n))
	case float64:
		return normalizeFloat(n)
	}
	return v
}

func normalizeUint(n uint64) interface{} {
	if n > math.MaxInt64 {
		return n
	}
	return int64(n)
}

func normalizeFloat(f float64) interface{} {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

// KeysEqual reports whether two keys are equal after normalization.
func KeysEqual(a, b interface{}) bool {
	if !IsComparable(a) || !IsComparable(b) {
		return false
	}
	return NormalizeKey(a) == NormalizeKey(b)
}

// IsComparable reports whether v can be used as a map key.
func IsComparable(v interface{}) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

// CheckIdentity rejects nil and non-comparable identities.
func CheckIdentity(id Identity) error {
	if id == nil {
		return errors.Wrap(ErrInvalidIdentity, "identity is nil")
	}
	if !IsComparable(id) {
		return errors.Wrapf(ErrInvalidIdentity, "identity of type %T is not comparable", id)
	}
	return nil
}

// CloneRecord copies the top level of a record.
func CloneRecord(rec Record) Record {
	if rec == nil {
		return nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// MergeRecord returns a copy of base with every field of patch applied on top.
func MergeRecord(base, patch Record) Record {
	out := CloneRecord(base)
	if out == nil {
		out = make(Record, len(patch))
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
