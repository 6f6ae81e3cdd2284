package domain

type CartLineInput struct {
	Category      string `json:"category"`
	ItemName      string `json:"item"`
	Quantity      int    `json:"quantity"`
	EngravingText string `json:"engraving_text"`
}

type CreateOrderRequest struct {
	Items []CartLineInput `json:"items"`
}

type CreateOrderResponse struct {
	Orders   []Order      `json:"orders"`
	Estimate WaitEstimate `json:"estimate"`
	Warning  string       `json:"warning,omitempty"`
}

type EstimateRequest struct {
	Items []CartLineInput `json:"items"`
}

type QueueSummaryResponse struct {
	PendingCustomers int          `json:"pending_customers"`
	Estimate         WaitEstimate `json:"estimate"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateStatusResponse struct {
	Order   Order  `json:"order"`
	Warning string `json:"warning,omitempty"`
}

type RegisterTokenRequest struct {
	Token string `json:"token"`
}

type RemoveOrderResponse struct {
	ID      string `json:"id"`
	Warning string `json:"warning,omitempty"`
}

type NotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}
