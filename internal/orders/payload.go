package orders

import (
	"time"

	"fareast/internal/models"
)

// TimeFormat is the layout of Payload.Time, always in UTC
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Payload is the order shape pushed to kitchen displays and returned by the
// order listing, so clients reconcile pushes and listings the same way.
type Payload struct {
	OrderNumber string        `json:"orderNumber"`
	PhoneNumber string        `json:"phoneNumber"`
	Items       []ItemPayload `json:"items"`
	Notes       string        `json:"notes"`
	Time        string        `json:"time"`
	Total       float64       `json:"total"`
	Status      string        `json:"status"`
}

// ItemPayload is one line as displayed in the kitchen
type ItemPayload struct {
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	Size          *string `json:"size"`
	Modifications string  `json:"modifications"`
}

// PayloadFromOrder reshapes a stored order for display
func PayloadFromOrder(order models.Order) Payload {
	items := make([]ItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ItemPayload{
			Name:          item.ItemName,
			Quantity:      item.Quantity,
			Size:          item.Size,
			Modifications: item.Notes,
		})
	}

	return Payload{
		OrderNumber: order.OrderNumber,
		PhoneNumber: order.PhoneNumber,
		Items:       items,
		Notes:       order.Notes,
		Time:        FormatTime(order.CreatedAt),
		Total:       order.Total,
		Status:      string(order.Status),
	}
}

// FormatTime renders t the way payloads carry timestamps
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
