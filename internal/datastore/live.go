// live.go provides change notification for reactive reads. Every write
// method reports the tables it touched after its transaction commits;
// subscribers holding a TableSubscription get a coalesced signal and
// re-run their query. Signals carry no payload, only "something changed".
package datastore

import (
	"context"
	"log/slog"
	"sync"
)

// liveQueryHub fans out table change notifications to subscribers.
type liveQueryHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*TableSubscription
}

func newLiveQueryHub() *liveQueryHub {
	return &liveQueryHub{subs: make(map[int]*TableSubscription)}
}

// TableSubscription delivers a signal whenever one of the watched tables
// changes. The channel has a buffer of one so notifications coalesce:
// a slow consumer sees at most one pending signal and re-reads current
// state, never a backlog of stale events.
type TableSubscription struct {
	hub    *liveQueryHub
	id     int
	tables map[string]struct{}
	ch     chan struct{}

	closeOnce sync.Once
}

// Signal returns the channel that fires after a watched table changes.
func (s *TableSubscription) Signal() <-chan struct{} {
	return s.ch
}

// Close detaches the subscription from the hub. Safe to call more than
// once; the signal channel is not closed so a racing notify cannot panic.
func (s *TableSubscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
}

func (h *liveQueryHub) subscribe(tables ...string) *TableSubscription {
	sub := &TableSubscription{
		hub:    h,
		tables: make(map[string]struct{}, len(tables)),
		ch:     make(chan struct{}, 1),
	}
	for _, t := range tables {
		sub.tables[t] = struct{}{}
	}

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.mu.Unlock()
	return sub
}

// notify wakes every subscriber watching any of the given tables. The
// send never blocks; a full buffer means a signal is already pending.
func (h *liveQueryHub) notify(tables ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		for _, t := range tables {
			if _, ok := sub.tables[t]; !ok {
				continue
			}
			select {
			case sub.ch <- struct{}{}:
			default:
			}
			break
		}
	}
}

// Subscribe returns a subscription that signals after any of the given
// tables is modified through this store.
func (ds *DataStore) Subscribe(tables ...string) *TableSubscription {
	return ds.hub.subscribe(tables...)
}

// LiveQuery runs query immediately, then again after every change to the
// watched tables, sending each result to out. It blocks until ctx is
// cancelled. Query errors are logged and the previous result stands; the
// next table change retries.
func LiveQuery[T any](ctx context.Context, store Interface, log *slog.Logger, out chan<- T, query func(ctx context.Context) (T, error), tables ...string) {
	sub := store.Subscribe(tables...)
	defer sub.Close()

	deliver := func() {
		result, err := query(ctx)
		if err != nil {
			log.Error("live query failed, keeping previous result", "tables", tables, "error", err)
			return
		}
		select {
		case out <- result:
		case <-ctx.Done():
		}
	}

	deliver()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Signal():
			deliver()
		}
	}
}
