package domain

import "time"

// StatusChangeMessage is published on notifications_fanout for every transition.
type StatusChangeMessage struct {
	OrderID       string    `json:"order_id"`
	CustomerName  string    `json:"customer_name"`
	Email         string    `json:"email"`
	Category      string    `json:"category"`
	ItemName      string    `json:"item"`
	EngravingText string    `json:"engraving_text,omitempty"`
	OldStatus     Status    `json:"old_status"`
	NewStatus     Status    `json:"new_status"`
	ChangedBy     string    `json:"changed_by"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewStatusChangeMessage(t Transition, changedBy string) StatusChangeMessage {
	return StatusChangeMessage{
		OrderID:       t.Order.ID,
		CustomerName:  t.Order.CustomerName,
		Email:         t.Order.Email,
		Category:      t.Order.Category,
		ItemName:      t.Order.ItemName,
		EngravingText: t.Order.EngravingText,
		OldStatus:     t.From,
		NewStatus:     t.To,
		ChangedBy:     changedBy,
		Timestamp:     t.At,
	}
}

// Completed reports a transition into completed, the only one that notifies a customer.
func (m StatusChangeMessage) Completed() bool {
	return m.OldStatus != StatusCompleted && m.NewStatus == StatusCompleted
}
