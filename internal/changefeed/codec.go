package changefeed

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

func encodeEvent(e *core.ChangeEvent) ([]byte, error) {
	if e == nil || e.Table == "" {
		return nil, errors.Wrap(core.ErrInvalidConfig, "change event needs a table")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s event for %s", e.Operation, e.Table)
	}
	return data, nil
}

// decodeEvent reverses encodeEvent. Numbers come back as float64; identity
// lookups normalize them.
func decodeEvent(data []byte) (*core.ChangeEvent, error) {
	var e core.ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, "decoding change event")
	}
	return &e, nil
}
