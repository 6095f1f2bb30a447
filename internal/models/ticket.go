package models

import "time"

type TicketStatus string

const (
	TicketPendingPayment TicketStatus = "pending_payment"
	TicketConfirmed      TicketStatus = "confirmed"
	TicketCheckedIn      TicketStatus = "checked_in"
	TicketCancelled      TicketStatus = "cancelled"
	TicketExpired        TicketStatus = "expired"
)

// ticketTransitions is the full transition table for the ticket state
// machine. checked_in, cancelled and expired are terminal.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketPendingPayment: {TicketConfirmed, TicketExpired},
	TicketConfirmed:      {TicketCheckedIn, TicketCancelled},
	TicketCheckedIn:      {},
	TicketCancelled:      {},
	TicketExpired:        {},
}

// CanTransition reports whether from → to is a legal ticket transition.
func CanTransition(from, to TicketStatus) bool {
	for _, next := range ticketTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Occupying reports whether a ticket in this status counts the seat as
// taken. At most one occupying ticket may exist per (trip_id, seat_number),
// enforced by a partial unique index.
func (s TicketStatus) Occupying() bool {
	return s == TicketConfirmed || s == TicketCheckedIn
}

// Terminal reports whether no further transitions are possible.
func (s TicketStatus) Terminal() bool {
	return len(ticketTransitions[s]) == 0
}

// Ticket is the authoritative record of a seat purchase.
type Ticket struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	BookingRef  string       `gorm:"type:varchar(36);not null;uniqueIndex" json:"booking_ref"`
	TripID      uint         `gorm:"not null" json:"trip_id"`
	SeatNumber  string       `gorm:"not null" json:"seat_number"`
	CustomerID  string       `gorm:"not null" json:"customer_id"`
	Price       float64      `gorm:"not null" json:"price"`
	Status      TicketStatus `gorm:"type:varchar(20);not null;default:'pending_payment'" json:"status"`
	HoldID      *uint        `json:"hold_id,omitempty"`
	PaymentRef  *string      `gorm:"type:varchar(64)" json:"payment_ref,omitempty"`
	CheckedInAt *time.Time   `json:"checked_in_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
