package store

import (
	"context"
	"sort"
	"time"

	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/query"
	"github.com/rzpsarthak13/joinstore/internal/txn"
)

// record buffers a change until the outermost command settles.
func (s *Store) record(table string, op core.OperationType, id core.Identity, rec core.Record) {
	var txID string
	if tx := s.coord.Current(); tx != nil {
		txID = tx.ID
	}
	s.pending = append(s.pending, &core.ChangeEvent{
		TxID:      txID,
		Table:     table,
		Operation: op,
		Identity:  id,
		Record:    rec,
		Timestamp: time.Now(),
	})
}

func (s *Store) settled(root *txn.Tx, committed bool) {
	events := s.pending
	s.pending = nil
	if !committed {
		s.logger.Debugf("tx %s (%s) rolled back, discarding %d change(s)", root.ID, root.Command, len(events))
		return
	}
	s.publish(root, events)
	s.notify()
}

func (s *Store) publish(root *txn.Tx, events []*core.ChangeEvent) {
	if s.queue == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
	defer cancel()
	for _, e := range events {
		if err := s.queue.Enqueue(ctx, e); err != nil {
			s.logger.Errorf("publishing %s of %s/%v in tx %s: %v", e.Operation, e.Table, e.Identity, root.ID, err)
		}
	}
}

type subscription struct {
	def query.Def
	fn  func([]query.ItemJSON, error)
}

// Subscribe evaluates def now and again after every committed command,
// passing the serialized result to fn. Call cancel to stop.
func (s *Store) Subscribe(def query.Def, fn func([]query.ItemJSON, error)) (cancel func()) {
	id := s.nextSub
	s.nextSub++
	sub := &subscription{def: def, fn: fn}
	s.subs[id] = sub
	s.emit(sub)
	return func() { delete(s.subs, id) }
}

func (s *Store) emit(sub *subscription) {
	sub.fn(s.Query(sub.def).JSON())
}

func (s *Store) notify() {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if sub, ok := s.subs[id]; ok {
			s.emit(sub)
		}
	}
}
