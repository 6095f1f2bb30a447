package dto

import "time"

type SeatSpecRequest struct {
	SeatNumber string `json:"seat_number"`
	IsDriver   bool   `json:"is_driver"`
}

type ProvisionSeatsRequest struct {
	Seats []SeatSpecRequest `json:"seats"`
}

type CreateTripRequest struct {
	VehicleID   uint      `json:"vehicle_id"`
	RouteName   string    `json:"route_name"`
	DepartureAt time.Time `json:"departure_at"`
}

type CreateHoldRequest struct {
	SeatNumber string  `json:"seat_number"`
	CustomerID string  `json:"customer_id"`
	Price      float64 `json:"price"`
}

type ConfirmHoldRequest struct {
	PaymentRef string `json:"payment_ref"`
}

type BookSeatRequest struct {
	SeatNumber string  `json:"seat_number"`
	CustomerID string  `json:"customer_id"`
	Price      float64 `json:"price"`
}

type BulkBookingRequest struct {
	VehicleID    uint     `json:"vehicle_id"`
	SeatNumbers  []string `json:"seat_numbers"`
	CustomerID   string   `json:"customer_id"`
	PricePerSeat float64  `json:"price_per_seat"`
}
