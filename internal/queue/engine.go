package queue

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"engrave-queue/internal/catalog"
	"engrave-queue/internal/domain"
)

type Options struct {
	// RequireEngraving rejects lines whose trimmed engraving text is empty.
	RequireEngraving bool
	Clock            func() time.Time
	NewID            func() string
}

// localWrite is a mutation made through this engine that the store has not reflected yet.
type localWrite struct {
	order   domain.Order
	deleted bool
	settled bool
}

// Engine holds the order queue of one shop. Mutations are serialized by mu;
// every read works on a copied snapshot.
type Engine struct {
	catalog *catalog.Catalog
	opts    Options

	mu        sync.RWMutex
	confirmed map[string]domain.Order
	local     map[string]*localWrite
}

func NewEngine(c *catalog.Catalog, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	return &Engine{
		catalog:   c,
		opts:      opts,
		confirmed: make(map[string]domain.Order),
		local:     make(map[string]*localWrite),
	}
}

// now is truncated to microseconds so timestamps survive a Postgres round trip unchanged.
func (e *Engine) now() time.Time {
	return e.opts.Clock().UTC().Truncate(time.Microsecond)
}

// Submit turns a cart into pending orders, one per line, all sharing one submission instant.
// Price and time come from the catalog at this moment, not from the lines.
func (e *Engine) Submit(customerName, email string, lines []domain.CartLine) ([]domain.Order, error) {
	customerName = strings.TrimSpace(customerName)
	email = strings.TrimSpace(email)
	if customerName == "" || email == "" {
		return nil, fmt.Errorf("%w: customer name and email are required", domain.ErrValidation)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}

	priced := make([]domain.CartLine, 0, len(lines))
	for i, l := range lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %d: quantity must be at least 1", domain.ErrValidation, i+1)
		}
		l.EngravingText = strings.TrimSpace(l.EngravingText)
		if e.opts.RequireEngraving && l.EngravingText == "" {
			return nil, fmt.Errorf("%w: line %d: engraving text is required", domain.ErrValidation, i+1)
		}
		entry, err := e.catalog.Lookup(l.Category, l.ItemName)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		l.CostPerItem, l.TimePerItem = entry.CostPerItem, entry.TimePerItem
		priced = append(priced, l)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	at := e.now()
	out := make([]domain.Order, 0, len(priced))
	for _, l := range priced {
		id := e.opts.NewID()
		if _, taken := e.lookup(id); taken {
			return nil, fmt.Errorf("queue: generated id %s already in use", id)
		}
		o := domain.Order{
			ID:            id,
			CustomerName:  customerName,
			Email:         email,
			Category:      l.Category,
			ItemName:      l.ItemName,
			Quantity:      l.Quantity,
			CostPerItem:   l.CostPerItem,
			TimePerItem:   l.TimePerItem,
			EngravingText: l.EngravingText,
			Status:        domain.StatusPending,
			SubmittedAt:   at,
		}
		e.local[id] = &localWrite{order: o}
		out = append(out, o)
	}
	return out, nil
}

// AdvanceStatus moves an order along the workflow. completedAt is set when entering
// completed and cleared on every other target.
func (e *Engine) AdvanceStatus(id string, to domain.Status) (domain.Transition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.lookup(id)
	if !ok {
		return domain.Transition{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	from := o.Status
	if !CanTransition(from, to) {
		return domain.Transition{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	at := e.now()
	o.Status = to
	o.CompletedAt = nil
	if to == domain.StatusCompleted {
		o.CompletedAt = &at
	}
	e.local[id] = &localWrite{order: o}
	return domain.Transition{From: from, To: to, At: at, Order: o}, nil
}

// Remove deletes an order whatever its status. It is outside the workflow.
func (e *Engine) Remove(id string) (domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.lookup(id)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	e.local[id] = &localWrite{order: o, deleted: true}
	return o, nil
}

// ApplySnapshot replaces the confirmed order set with the store's view. Local writes
// survive until the snapshot reflects them, or until they were settled.
func (e *Engine) ApplySnapshot(orders []domain.Order) {
	confirmed := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		confirmed[o.ID] = o
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.confirmed = confirmed
	for id, w := range e.local {
		stored, ok := confirmed[id]
		switch {
		case w.settled:
			delete(e.local, id)
		case w.deleted && !ok:
			delete(e.local, id)
		case !w.deleted && ok && sameState(stored, w.order):
			delete(e.local, id)
		}
	}
}

// Settle marks the local write of each stored order as durably recorded; the next
// snapshot supersedes it. A write made after o is left alone.
func (e *Engine) Settle(stored ...domain.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range stored {
		if w, ok := e.local[o.ID]; ok && !w.deleted && sameState(w.order, o) {
			w.settled = true
		}
	}
}

// SettleRemoval marks pending removals as durably recorded.
func (e *Engine) SettleRemoval(ids ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		if w, ok := e.local[id]; ok && w.deleted {
			w.settled = true
		}
	}
}

// Unconfirmed counts local writes not yet reflected by a snapshot.
func (e *Engine) Unconfirmed() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.local)
}

func (e *Engine) Order(id string) (domain.Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	o, ok := e.lookup(id)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return o, nil
}

// All returns every order, oldest submission first.
func (e *Engine) All() []domain.Order {
	return e.snapshot()
}

// PendingCustomerCount counts distinct customer names among pending orders.
// Two customers sharing a display name count once.
func (e *Engine) PendingCustomerCount() int {
	names := make(map[string]struct{})
	for _, o := range e.snapshot() {
		if o.Status == domain.StatusPending {
			names[o.CustomerName] = struct{}{}
		}
	}
	return len(names)
}

// EstimateWait sums the bench time of every pending or processing line ahead of the
// candidate lines, plus the candidate lines themselves.
func (e *Engine) EstimateWait(candidate []domain.CartLine) domain.WaitEstimate {
	var est domain.WaitEstimate
	names := make(map[string]struct{})
	for _, o := range e.snapshot() {
		if o.Status != domain.StatusPending && o.Status != domain.StatusProcessing {
			continue
		}
		names[o.CustomerName] = struct{}{}
		est.AheadMinutes += o.Minutes()
	}
	est.CustomersAhead = len(names)
	for _, l := range candidate {
		est.OwnMinutes += l.Minutes()
	}
	est.TotalMinutes = est.AheadMinutes + est.OwnMinutes
	return est
}

func (e *Engine) Statistics() domain.Statistics {
	var s domain.Statistics
	for _, o := range e.snapshot() {
		switch o.Status {
		case domain.StatusPending:
			s.Pending++
		case domain.StatusProcessing:
			s.Processing++
		case domain.StatusCompleted:
			s.Completed++
		case domain.StatusCancelled:
			s.Cancelled++
		}
		s.Total++
	}
	return s
}

// OrdersForCustomer is the customer's history, newest submission first.
// The email match is exact and case-sensitive.
func (e *Engine) OrdersForCustomer(email string) []domain.Order {
	out := e.forCustomer(email)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// QueueForCustomer is the same selection in service order, oldest first.
func (e *Engine) QueueForCustomer(email string) []domain.Order {
	return e.forCustomer(email)
}

func (e *Engine) forCustomer(email string) []domain.Order {
	var out []domain.Order
	for _, o := range e.snapshot() {
		if o.Email == email {
			out = append(out, o)
		}
	}
	return out
}

// Filter selects the staff queue view.
type Filter struct {
	Tab    string // pending | processing | all
	Search string // case-insensitive match on customer name, id or item
}

// Orders returns the staff view, oldest submission first.
func (e *Engine) Orders(f Filter) []domain.Order {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	var out []domain.Order
	for _, o := range e.snapshot() {
		switch f.Tab {
		case string(domain.StatusPending), string(domain.StatusProcessing):
			if string(o.Status) != f.Tab {
				continue
			}
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(o.CustomerName), q) &&
			!strings.Contains(strings.ToLower(o.ID), q) &&
			!strings.Contains(strings.ToLower(o.ItemName), q) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// lookup resolves an id through local writes first. Callers hold mu.
func (e *Engine) lookup(id string) (domain.Order, bool) {
	if w, ok := e.local[id]; ok {
		if w.deleted {
			return domain.Order{}, false
		}
		return w.order, true
	}
	o, ok := e.confirmed[id]
	return o, ok
}

// snapshot merges confirmed orders with local writes, sorted by submission then id.
func (e *Engine) snapshot() []domain.Order {
	e.mu.RLock()
	merged := make(map[string]domain.Order, len(e.confirmed)+len(e.local))
	for id, o := range e.confirmed {
		merged[id] = o
	}
	for id, w := range e.local {
		if w.deleted {
			delete(merged, id)
			continue
		}
		merged[id] = w.order
	}
	e.mu.RUnlock()

	out := make([]domain.Order, 0, len(merged))
	for _, o := range merged {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sameState(a, b domain.Order) bool {
	if a.Status != b.Status {
		return false
	}
	if a.CompletedAt == nil || b.CompletedAt == nil {
		return a.CompletedAt == nil && b.CompletedAt == nil
	}
	return a.CompletedAt.Equal(*b.CompletedAt)
}
