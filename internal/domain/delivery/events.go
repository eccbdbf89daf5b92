package delivery

import "time"

const (
	EventDeliveryScheduled = "DeliveryScheduled"
	EventDeliveryDeparted  = "DeliveryDeparted"
	EventDeliveryCompleted = "DeliveryCompleted"
)

type DeliveryScheduled struct {
	DeliveryID    string    `json:"delivery_id"`
	RequestID     string    `json:"request_id"`
	ScheduledDate time.Time `json:"scheduled_date"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

type DeliveryDeparted struct {
	DeliveryID string    `json:"delivery_id"`
	DepartedAt time.Time `json:"departed_at"`
}

type DeliveryCompleted struct {
	DeliveryID  string    `json:"delivery_id"`
	RequestID   string    `json:"request_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}
