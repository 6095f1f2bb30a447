package dto

import (
	"time"

	"github.com/sala-transit/reservation-service/internal/models"
)

type HoldResponse struct {
	HoldToken  string            `json:"hold_token"`
	TripID     uint              `json:"trip_id"`
	SeatNumber string            `json:"seat_number"`
	CustomerID string            `json:"customer_id"`
	BookingRef string            `json:"booking_ref"`
	Status     models.HoldStatus `json:"status"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

type TicketResponse struct {
	BookingRef  string              `json:"booking_ref"`
	TripID      uint                `json:"trip_id"`
	SeatNumber  string              `json:"seat_number"`
	CustomerID  string              `json:"customer_id"`
	Price       float64             `json:"price"`
	Status      models.TicketStatus `json:"status"`
	PaymentRef  *string             `json:"payment_ref,omitempty"`
	CheckedInAt *time.Time          `json:"checked_in_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

type BulkBookingResponse struct {
	Tickets        []TicketResponse `json:"tickets"`
	TotalPrice     float64          `json:"total_price"`
	AvailableSeats int              `json:"available_seats"`
	BookedSeats    int              `json:"booked_seats"`
}

type CheckInResponse struct {
	Ticket      TicketResponse `json:"ticket"`
	AlreadyUsed bool           `json:"already_used"`
	Message     string         `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToTicketResponse(t *models.Ticket) TicketResponse {
	return TicketResponse{
		BookingRef:  t.BookingRef,
		TripID:      t.TripID,
		SeatNumber:  t.SeatNumber,
		CustomerID:  t.CustomerID,
		Price:       t.Price,
		Status:      t.Status,
		PaymentRef:  t.PaymentRef,
		CheckedInAt: t.CheckedInAt,
		CreatedAt:   t.CreatedAt,
	}
}

func ToHoldResponse(h *models.ReservationHold, bookingRef string) HoldResponse {
	return HoldResponse{
		HoldToken:  h.HoldToken,
		TripID:     h.TripID,
		SeatNumber: h.SeatNumber,
		CustomerID: h.CustomerID,
		BookingRef: bookingRef,
		Status:     h.Status,
		ExpiresAt:  h.ExpiresAt,
	}
}
