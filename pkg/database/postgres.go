package database

import (
	"log"

	"github.com/sala-transit/reservation-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Seat{},
		&models.Trip{},
		&models.Ticket{},
		&models.ReservationHold{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Partial unique indexes backing the two seat invariants: at most one
	// occupying ticket and at most one active hold per (trip, seat). The
	// row-locked transactions are the primary guard; these turn anything
	// that slips past them into a constraint violation instead of a
	// double sale.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_ticket_seat_occupied
		ON tickets (trip_id, seat_number)
		WHERE status IN ('confirmed', 'checked_in')
	`)
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_hold_seat_active
		ON reservation_holds (trip_id, seat_number)
		WHERE status = 'active'
	`)

	return db
}
