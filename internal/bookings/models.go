package bookings

import "time"

const Collection = "bookings"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Booking is a table reservation. Date is YYYY-MM-DD and Time is HH:MM in restaurant local time.
type Booking struct {
	ID string `json:"id"`

	GuestName   string `json:"guestName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Email       string `json:"email,omitempty"`
	PartySize   int    `json:"partySize"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Status      Status `json:"status"`
	Notes       string `json:"notes,omitempty"`

	// Source names the system that created the booking, e.g. "n8n" or "vapi".
	Source string `json:"source,omitempty"`
	CallID string `json:"callId,omitempty"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type ListFilter struct {
	Status Status
	Date   string
	Limit  int
}
