package collection

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

// keyOf encodes a normalized identity as a string tagged with its kind, so
// int64(1), "1" and true never share a key.
func keyOf(id core.Identity) string {
	var buf [9]byte
	switch k := core.NormalizeKey(id).(type) {
	case int64:
		buf[0] = 'i'
		binary.BigEndian.PutUint64(buf[1:], uint64(k))
	case uint64:
		buf[0] = 'u'
		binary.BigEndian.PutUint64(buf[1:], k)
	case float64:
		buf[0] = 'f'
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(k))
	case string:
		return "s" + k
	case bool:
		if k {
			return "b1"
		}
		return "b0"
	case nil:
		return "n"
	default:
		return fmt.Sprintf("x%T:%#v", k, k)
	}
	return string(buf[:])
}

// keyHasher implements immutable.Hasher for encoded identity keys.
type keyHasher struct{}

// Hash returns a hash for key.
func (h *keyHasher) Hash(key string) uint32 {
	sum := xxhash.Sum64String(key)
	return uint32(sum) ^ uint32(sum>>32)
}

// Equal returns true if a is equal to b.
func (h *keyHasher) Equal(a, b string) bool {
	return a == b
}

// seqComparer orders insertion sequence numbers.
type seqComparer struct{}

func (c *seqComparer) Compare(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
