package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus accepts only the four workflow statuses.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no workflow transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Order is one accepted engraving request for a quantity of a single catalog item.
// Price and time are snapshotted from the catalog at submission.
type Order struct {
	ID            string     `json:"id"`
	CustomerName  string     `json:"customer_name"`
	Email         string     `json:"email"`
	Category      string     `json:"category"`
	ItemName      string     `json:"item"`
	Quantity      int        `json:"quantity"`
	CostPerItem   float64    `json:"cost_per_item"`
	TimePerItem   int        `json:"time_per_item"` // minutes
	EngravingText string     `json:"engraving_text,omitempty"`
	Status        Status     `json:"status"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Minutes is the processing time of the whole line.
func (o Order) Minutes() int { return o.TimePerItem * o.Quantity }

// Cost is the price of the whole line.
func (o Order) Cost() float64 { return o.CostPerItem * float64(o.Quantity) }

// CartLine is a pre-submission draft of one order line.
type CartLine struct {
	Category      string  `json:"category"`
	ItemName      string  `json:"item"`
	Quantity      int     `json:"quantity"`
	CostPerItem   float64 `json:"cost_per_item"`
	TimePerItem   int     `json:"time_per_item"`
	EngravingText string  `json:"engraving_text,omitempty"`
}

func (l CartLine) Minutes() int { return l.TimePerItem * l.Quantity }

func (l CartLine) Cost() float64 { return l.CostPerItem * float64(l.Quantity) }

// WaitEstimate is derived on demand and never stored.
type WaitEstimate struct {
	CustomersAhead int `json:"customers_ahead"`
	AheadMinutes   int `json:"ahead_minutes"`
	OwnMinutes     int `json:"own_minutes"`
	TotalMinutes   int `json:"total_minutes"`
}

type Statistics struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

// Transition describes one accepted status change.
type Transition struct {
	From  Status
	To    Status
	At    time.Time
	Order Order
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"` // customer email
	OrderID   string    `json:"order_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type PushToken struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}

// Identity is the caller as asserted by the fronting auth proxy.
type Identity struct {
	Email string
	Name  string
}

func (i Identity) Anonymous() bool { return i.Email == "" }

// DisplayName falls back to the mailbox part of the email, then to "Customer".
func (i Identity) DisplayName() string {
	if n := strings.TrimSpace(i.Name); n != "" {
		return n
	}
	if local, _, _ := strings.Cut(strings.TrimSpace(i.Email), "@"); local != "" {
		return local
	}
	return "Customer"
}

// StatusLogEntry is one row of an order's status history.
type StatusLogEntry struct {
	Status    Status    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}
