package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"engrave-queue/internal/domain"
)

// Row is the flattened order contract shared by the CSV export and the analytics stream.
// Field order is fixed; downstream loaders depend on it.
type Row struct {
	ID            string  `json:"id"`
	CustomerName  string  `json:"customer_name"`
	Email         string  `json:"email"`
	Category      string  `json:"category"`
	Item          string  `json:"item"`
	EngravingText string  `json:"engraving_text"`
	Quantity      int     `json:"quantity"`
	Status        string  `json:"status"`
	SubmittedAt   string  `json:"submitted_at"`
	CompletedAt   string  `json:"completed_at"`
	CostPerItem   float64 `json:"cost_per_item"`
	TimePerItem   int     `json:"time_per_item"`
}

var header = []string{
	"ID",
	"Customer Name",
	"Email",
	"Category",
	"Item",
	"Engraving Text",
	"Quantity",
	"Status",
	"Submitted At",
	"Completed At",
	"Cost Per Item",
	"Time Per Item (min)",
}

func Header() []string {
	out := make([]string, len(header))
	copy(out, header)
	return out
}

func FromOrder(o domain.Order) Row {
	r := Row{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		Email:         o.Email,
		Category:      o.Category,
		Item:          o.ItemName,
		EngravingText: o.EngravingText,
		Quantity:      o.Quantity,
		Status:        string(o.Status),
		SubmittedAt:   o.SubmittedAt.UTC().Format(time.RFC3339Nano),
		CostPerItem:   o.CostPerItem,
		TimePerItem:   o.TimePerItem,
	}
	if o.CompletedAt != nil {
		r.CompletedAt = o.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	return r
}

func (r Row) Record() []string {
	return []string{
		r.ID,
		r.CustomerName,
		r.Email,
		r.Category,
		r.Item,
		r.EngravingText,
		strconv.Itoa(r.Quantity),
		r.Status,
		r.SubmittedAt,
		r.CompletedAt,
		strconv.FormatFloat(r.CostPerItem, 'f', -1, 64),
		strconv.Itoa(r.TimePerItem),
	}
}

// WriteCSV writes the header and one record per order in the given order.
func WriteCSV(w io.Writer, orders []domain.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, o := range orders {
		if err := cw.Write(FromOrder(o).Record()); err != nil {
			return fmt.Errorf("write csv row %s: %w", o.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName is the download name for an export taken at t.
func FileName(t time.Time) string {
	return "engraving_queue_export_" + t.UTC().Format("2006-01-02") + ".csv"
}
