// Package store holds the session's in-memory order collection. It is the
// single owner of order state; the connection manager and the notification
// sink only go through its methods. Orders are never deleted during a
// session, they move to a terminal status instead.
package store

import (
	"fmt"
	"sort"
	"sync"

	"resto-dashboard/internal/domain"
)

type record struct {
	order domain.Order
	seen  bool
}

type Store struct {
	mu      sync.RWMutex
	records map[string]*record
}

func New() *Store {
	return &Store{records: make(map[string]*record)}
}

// Prime bulk-loads the startup snapshot fetched over REST. Primed orders are
// born seen; only live new-order events count as unseen.
func (s *Store) Prime(orders []domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("order %s: %w", o.ID, err)
		}
		s.records[o.ID] = &record{order: o, seen: true}
	}
	return nil
}

// ApplyNew inserts a freshly announced order. A duplicate ID is not an
// error and must not duplicate the entry: the event degrades into an update
// against the existing record, and inserted comes back false so the caller
// knows not to notify.
func (s *Store) ApplyNew(o domain.Order) (inserted bool, err error) {
	if err := o.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	if _, exists := s.records[o.ID]; exists {
		s.mu.Unlock()
		return false, s.ApplyUpdate(domain.FullPatch(o))
	}
	s.records[o.ID] = &record{order: o}
	s.mu.Unlock()
	return true, nil
}

// ApplyUpdate mutates an existing order. A status change must follow the
// transition graph; a same-status patch is a no-op on that field.
func (s *Store) ApplyUpdate(p domain.OrderPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[p.ID]
	if !ok {
		return fmt.Errorf("unknown order %s", p.ID)
	}
	if p.Status != nil && *p.Status != rec.order.Status {
		if err := domain.CheckTransition(rec.order.Status, *p.Status); err != nil {
			return err
		}
	}
	if p.CustomerName != nil {
		rec.order.CustomerName = *p.CustomerName
	}
	if p.Phone != nil {
		rec.order.Phone = *p.Phone
	}
	if p.TableNumber != nil {
		rec.order.TableNumber = p.TableNumber
	}
	if p.Items != nil {
		rec.order.Items = p.Items
		rec.order.Total = *p.Total
	}
	if p.Notes != nil {
		rec.order.Notes = *p.Notes
	}
	if p.Status != nil {
		rec.order.Status = *p.Status
	}
	return nil
}

// ChangeStatus performs a graph-checked local transition and returns the
// prior status so an optimistic caller can roll back.
func (s *Store) ChangeStatus(id string, next domain.Status) (prev domain.Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return "", fmt.Errorf("unknown order %s", id)
	}
	if err := domain.CheckTransition(rec.order.Status, next); err != nil {
		return "", err
	}
	prev = rec.order.Status
	rec.order.Status = next
	return prev, nil
}

// ForceStatus sets a status without consulting the transition graph. It
// exists for optimistic rollback and for adopting the backend's confirmed
// state; event-driven changes go through ApplyUpdate instead.
func (s *Store) ForceStatus(id string, st domain.Status) error {
	if !st.Valid() {
		return fmt.Errorf("unknown order status %q", string(st))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("unknown order %s", id)
	}
	rec.order.Status = st
	return nil
}

func (s *Store) Get(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.Order{}, false
	}
	return rec.order, true
}

// Filter narrows and reorders List results.
type Filter func(*query)

type query struct {
	statuses    map[domain.Status]bool
	oldestFirst bool
}

func WithStatus(sts ...domain.Status) Filter {
	return func(q *query) {
		if q.statuses == nil {
			q.statuses = make(map[domain.Status]bool)
		}
		for _, st := range sts {
			q.statuses[st] = true
		}
	}
}

func OldestFirst() Filter {
	return func(q *query) { q.oldestFirst = true }
}

// List returns a copy of the known orders, newest-first by creation time,
// ties broken by ID so the ordering is deterministic.
func (s *Store) List(filters ...Filter) []domain.Order {
	var q query
	for _, f := range filters {
		f(&q)
	}

	s.mu.RLock()
	out := make([]domain.Order, 0, len(s.records))
	for _, rec := range s.records {
		if q.statuses != nil && !q.statuses[rec.order.Status] {
			continue
		}
		out = append(out, rec.order)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if q.oldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// UnseenCount counts PENDING orders created since the last MarkAllSeen.
func (s *Store) UnseenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.records {
		if !rec.seen && rec.order.Status == domain.StatusPending {
			n++
		}
	}
	return n
}

func (s *Store) MarkAllSeen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		rec.seen = true
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
