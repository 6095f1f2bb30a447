package models

import "time"

type HoldStatus string

const (
	HoldActive   HoldStatus = "active"
	HoldExpired  HoldStatus = "expired"
	HoldReleased HoldStatus = "released"
	HoldConsumed HoldStatus = "consumed"
)

// ReservationHold is an exclusive, time-bounded claim on a (trip, seat)
// pair during checkout. Each hold is paired 1:1 with a pending ticket at
// creation; consuming the hold confirms that ticket, expiry or release
// expires it. A partial unique index keeps at most one active hold per
// (trip_id, seat_number).
type ReservationHold struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	HoldToken  string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"hold_token"`
	TripID     uint       `gorm:"not null" json:"trip_id"`
	SeatNumber string     `gorm:"not null" json:"seat_number"`
	CustomerID string     `gorm:"not null" json:"customer_id"`
	TicketID   uint       `gorm:"not null" json:"ticket_id"`
	Status     HoldStatus `gorm:"type:varchar(10);not null;default:'active'" json:"status"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Live reports whether the hold still blocks other customers: active and
// not yet past its expiry. An overdue active hold is dead to validators
// even before the sweeper flips its status.
func (h *ReservationHold) Live(now time.Time) bool {
	return h.Status == HoldActive && now.Before(h.ExpiresAt)
}
