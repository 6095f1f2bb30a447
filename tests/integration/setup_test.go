//go:build integration

package integration

import (
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/sala-transit/reservation-service/internal/models"
	"github.com/sala-transit/reservation-service/internal/repository"
	"github.com/sala-transit/reservation-service/internal/service"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5434"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "reservation_test_db"),
	)

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	// Drop and recreate tables for clean state
	testDB.Exec("DROP TABLE IF EXISTS reservation_holds")
	testDB.Exec("DROP TABLE IF EXISTS tickets")
	testDB.Exec("DROP TABLE IF EXISTS trips")
	testDB.Exec("DROP TABLE IF EXISTS seats")

	if err := testDB.AutoMigrate(
		&models.Seat{},
		&models.Trip{},
		&models.Ticket{},
		&models.ReservationHold{},
	); err != nil {
		log.Fatalf("failed to auto-migrate test database: %v", err)
	}

	testDB.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_ticket_seat_occupied
		ON tickets (trip_id, seat_number)
		WHERE status IN ('confirmed', 'checked_in')
	`)
	testDB.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_hold_seat_active
		ON reservation_holds (trip_id, seat_number)
		WHERE status = 'active'
	`)

	code := m.Run()

	testDB.Exec("DROP TABLE IF EXISTS reservation_holds")
	testDB.Exec("DROP TABLE IF EXISTS tickets")
	testDB.Exec("DROP TABLE IF EXISTS trips")
	testDB.Exec("DROP TABLE IF EXISTS seats")

	os.Exit(code)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var vehicleIDCounter uint = 0

func nextVehicleID() uint {
	vehicleIDCounter++
	return vehicleIDCounter
}

// createMinibus provisions a fresh vehicle with 4 passenger seats
// ("1".."4") and one driver seat ("D"), returning its vehicle id.
func createMinibus(t *testing.T) uint {
	t.Helper()
	vehicleID := nextVehicleID()
	seats := []models.Seat{
		{VehicleID: vehicleID, SeatNumber: "D", IsDriver: true},
		{VehicleID: vehicleID, SeatNumber: "1"},
		{VehicleID: vehicleID, SeatNumber: "2"},
		{VehicleID: vehicleID, SeatNumber: "3"},
		{VehicleID: vehicleID, SeatNumber: "4"},
	}
	require.NoError(t, testDB.Create(&seats).Error)
	return vehicleID
}

func createTestTrip(t *testing.T, vehicleID uint, departure time.Time) *models.Trip {
	t.Helper()
	trip := &models.Trip{
		VehicleID:           vehicleID,
		RouteName:           "Chiang Mai - Bangkok",
		DepartureAt:         departure,
		Status:              models.TripScheduled,
		TicketSales:         models.SalesOpen,
		TotalPassengerSeats: 4,
		AvailableSeats:      4,
		BookedSeats:         0,
	}
	require.NoError(t, testDB.Create(trip).Error)
	return trip
}

func newBookingService(holdTTL time.Duration) service.BookingService {
	tripRepo := repository.NewTripRepository(testDB)
	seatRepo := repository.NewSeatRepository(testDB)
	ticketRepo := repository.NewTicketRepository(testDB)
	holdRepo := repository.NewHoldRepository(testDB)
	return service.NewBookingService(tripRepo, seatRepo, ticketRepo, holdRepo, nil, holdTTL)
}

func newSweeper() *service.ExpirySweeper {
	tripRepo := repository.NewTripRepository(testDB)
	ticketRepo := repository.NewTicketRepository(testDB)
	holdRepo := repository.NewHoldRepository(testDB)
	return service.NewExpirySweeper(tripRepo, holdRepo, ticketRepo, nil, time.Minute)
}

func reloadTrip(t *testing.T, id uint) *models.Trip {
	t.Helper()
	var trip models.Trip
	require.NoError(t, testDB.First(&trip, id).Error)
	return &trip
}
