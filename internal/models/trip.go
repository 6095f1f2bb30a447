package models

import "time"

type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

type TicketSales string

const (
	SalesOpen   TicketSales = "open"
	SalesClosed TicketSales = "closed"
)

// Trip is one dispatch of a vehicle on a route. The seat counters are
// maintained incrementally: every ticket transition that changes occupancy
// updates them inside the same transaction, under the trip row lock.
// available_seats + booked_seats == total_passenger_seats at all times.
type Trip struct {
	ID                  uint        `gorm:"primaryKey" json:"id"`
	VehicleID           uint        `gorm:"not null" json:"vehicle_id"`
	RouteName           string      `gorm:"not null" json:"route_name"`
	DepartureAt         time.Time   `gorm:"not null" json:"departure_at"`
	Status              TripStatus  `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"`
	TicketSales         TicketSales `gorm:"type:varchar(10);not null;default:'open'" json:"ticket_sales"`
	TotalPassengerSeats int         `gorm:"not null" json:"total_passenger_seats"`
	AvailableSeats      int         `gorm:"not null" json:"available_seats"`
	BookedSeats         int         `gorm:"not null" json:"booked_seats"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// OpenForSale reports whether tickets can still be sold for this trip.
func (t *Trip) OpenForSale(now time.Time) bool {
	return t.Status == TripScheduled && t.TicketSales == SalesOpen && now.Before(t.DepartureAt)
}
