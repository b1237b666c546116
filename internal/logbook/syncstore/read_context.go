package syncstore

import (
	"errors"
	"sync/atomic"
)

// ErrStaleContext marks a read whose caller context moved on while the
// read was in flight; the result must be discarded, not applied.
var ErrStaleContext = errors.New("stale read context")

// ReadContext resolves out-of-order completion of in-flight reads, e.g.
// when the user switches exercises faster than the history loads. Each
// new read bumps the context id; a result is only applied if its id is
// still the current one.
type ReadContext struct {
	current atomic.Int64
}

// Next starts a new read generation and returns its id.
func (rc *ReadContext) Next() int64 {
	return rc.current.Add(1)
}

// StillCurrent reports whether no newer read has started since id.
func (rc *ReadContext) StillCurrent(id int64) bool {
	return rc.current.Load() == id
}
