package repository

import (
	"context"

	"github.com/sala-transit/reservation-service/internal/models"
	"gorm.io/gorm"
)

type SeatRepository interface {
	CreateBatch(ctx context.Context, seats []models.Seat) error
	FindByVehicle(ctx context.Context, vehicleID uint) ([]models.Seat, error)
	FindByVehicleAndNumber(ctx context.Context, vehicleID uint, seatNumber string) (*models.Seat, error)
	CountPassengerSeats(ctx context.Context, vehicleID uint) (int64, error)
}

type seatRepository struct {
	db *gorm.DB
}

func NewSeatRepository(db *gorm.DB) SeatRepository {
	return &seatRepository{db: db}
}

func (r *seatRepository) CreateBatch(ctx context.Context, seats []models.Seat) error {
	return r.db.WithContext(ctx).Create(&seats).Error
}

func (r *seatRepository) FindByVehicle(ctx context.Context, vehicleID uint) ([]models.Seat, error) {
	var seats []models.Seat
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("seat_number ASC").
		Find(&seats).Error
	if err != nil {
		return nil, err
	}
	return seats, nil
}

func (r *seatRepository) FindByVehicleAndNumber(ctx context.Context, vehicleID uint, seatNumber string) (*models.Seat, error) {
	var seat models.Seat
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND seat_number = ?", vehicleID, seatNumber).
		First(&seat).Error
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

// CountPassengerSeats excludes driver positions; this is the base for
// every capacity figure downstream.
func (r *seatRepository) CountPassengerSeats(ctx context.Context, vehicleID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Seat{}).
		Where("vehicle_id = ? AND is_driver = false", vehicleID).
		Count(&count).Error
	return count, err
}
