package models

import "time"

// Seat is one position on a vehicle, fixed at provisioning time.
// Driver positions carry IsDriver and are never bookable.
type Seat struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	VehicleID  uint      `gorm:"not null;uniqueIndex:idx_vehicle_seat" json:"vehicle_id"`
	SeatNumber string    `gorm:"not null;uniqueIndex:idx_vehicle_seat" json:"seat_number"`
	IsDriver   bool      `gorm:"not null;default:false" json:"is_driver"`
	CreatedAt  time.Time `json:"created_at"`
}
