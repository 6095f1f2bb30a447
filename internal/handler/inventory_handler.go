package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sala-transit/reservation-service/internal/dto"
	"github.com/sala-transit/reservation-service/internal/models"
	"github.com/sala-transit/reservation-service/internal/service"
)

type InventoryHandler struct {
	svc service.InventoryService
}

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

func (h *InventoryHandler) RegisterRoutes(e *echo.Echo) {
	vehicles := e.Group("/api/v1/vehicles")
	vehicles.POST("/:id/seats", h.ProvisionSeats)
	vehicles.GET("/:id/seats", h.ListSeats)

	e.POST("/api/v1/trips", h.CreateTrip)
}

func vehicleIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid vehicle id")
	}
	return uint(id), nil
}

func (h *InventoryHandler) ProvisionSeats(c echo.Context) error {
	vehicleID, err := vehicleIDParam(c)
	if err != nil {
		return err
	}

	var req dto.ProvisionSeatsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	layout := make([]service.SeatSpec, 0, len(req.Seats))
	for _, s := range req.Seats {
		if s.SeatNumber == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "seat_number is required for every seat")
		}
		layout = append(layout, service.SeatSpec{SeatNumber: s.SeatNumber, IsDriver: s.IsDriver})
	}

	seats, err := h.svc.ProvisionSeats(c.Request().Context(), vehicleID, layout)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, seats)
}

func (h *InventoryHandler) ListSeats(c echo.Context) error {
	vehicleID, err := vehicleIDParam(c)
	if err != nil {
		return err
	}

	seats, err := h.svc.ListSeats(c.Request().Context(), vehicleID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, seats)
}

func (h *InventoryHandler) CreateTrip(c echo.Context) error {
	var req dto.CreateTripRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.VehicleID == 0 || req.RouteName == "" || req.DepartureAt.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "vehicle_id, route_name and departure_at are required")
	}

	trip := &models.Trip{
		VehicleID:   req.VehicleID,
		RouteName:   req.RouteName,
		DepartureAt: req.DepartureAt,
	}
	if err := h.svc.CreateTrip(c.Request().Context(), trip); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, trip)
}
