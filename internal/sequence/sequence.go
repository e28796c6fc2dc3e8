// Package sequence provides the monotonic id source for the state-change
// log. Id assignment is a capability injected into the store rather than a
// hidden global, so tests can supply deterministic ids and a clustered
// deployment can plug in its consensus-owned sequence.
package sequence

import (
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/vk/gridflow/internal/model"
)

// Sequencer allocates monotonically increasing state-change ids. Ids must
// never repeat or decrease for the lifetime of a log.
type Sequencer interface {
	Next() (model.StateChangeID, error)
}

// Counter is an in-memory Sequencer. Safe for concurrent use; suitable
// for tests and single-process sessions. Ids start at 1, matching
// Durable.
type Counter struct {
	last atomic.Uint64
}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Next() (model.StateChangeID, error) {
	return model.StateChangeID(c.last.Add(1)), nil
}

// Durable is a Sequencer backed by a Badger sequence, surviving restarts.
// Ids may skip ranges after a crash (leased bandwidth is discarded), which
// preserves monotonicity, the only property the log needs.
type Durable struct {
	seq *badger.Sequence
}

// NewDurable leases a persistent sequence under the given key. Release
// must be called before closing the database.
func NewDurable(db *badger.DB, key []byte, bandwidth uint64) (*Durable, error) {
	seq, err := db.GetSequence(key, bandwidth)
	if err != nil {
		return nil, fmt.Errorf("lease state change sequence: %w", err)
	}
	return &Durable{seq: seq}, nil
}

func (d *Durable) Next() (model.StateChangeID, error) {
	n, err := d.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next state change id: %w", err)
	}
	// Badger sequences hand out 0 first; log ids start at 1, the same as
	// Counter.
	return model.StateChangeID(n + 1), nil
}

// Release returns the unused portion of the leased id range.
func (d *Durable) Release() error {
	return d.seq.Release()
}
