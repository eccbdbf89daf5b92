package request

import "time"

const (
	EventRequestSubmitted = "RequestSubmitted"
	EventRequestAccepted  = "RequestAccepted"
	EventRequestFulfilled = "RequestFulfilled"
	EventRequestCancelled = "RequestCancelled"
)

// Item is one blood type line of a hospital request
type Item struct {
	BloodType      string `json:"blood_type"`
	UnitsRequested int    `json:"units_requested"`
}

type RequestSubmitted struct {
	RequestID     string    `json:"request_id"`
	HospitalID    string    `json:"hospital_id"`
	BloodSourceID string    `json:"blood_source_id"`
	Items         []Item    `json:"items"`
	RequestDate   time.Time `json:"request_date"`
	DateNeeded    time.Time `json:"date_needed"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type RequestAccepted struct {
	RequestID  string    `json:"request_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

type RequestFulfilled struct {
	RequestID   string    `json:"request_id"`
	DeliveryID  string    `json:"delivery_id,omitempty"`
	FulfilledAt time.Time `json:"fulfilled_at"`
}

type RequestCancelled struct {
	RequestID   string    `json:"request_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}
