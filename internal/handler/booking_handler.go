package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sala-transit/reservation-service/internal/dto"
	"github.com/sala-transit/reservation-service/internal/service"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	trips := e.Group("/api/v1/trips")
	trips.POST("/:id/holds", h.CreateHold)
	trips.POST("/:id/bookings", h.BookSeat)
	trips.POST("/:id/bookings/bulk", h.BookSeatsBulk)
	trips.GET("/:id/seat-map", h.GetSeatMap)
	trips.GET("/:id/booked-seats", h.GetBookedSeats)
	trips.GET("/:id/capacity-audit", h.AuditCapacity)

	holds := e.Group("/api/v1/holds")
	holds.POST("/:token/confirm", h.ConfirmHold)
	holds.DELETE("/:token", h.ReleaseHold)

	tickets := e.Group("/api/v1/tickets")
	tickets.GET("/:ref", h.GetTicket)
	tickets.POST("/:ref/check-in", h.CheckIn)
	tickets.DELETE("/:ref", h.CancelTicket)
}

// toHTTPError maps the service error taxonomy onto status codes: missing
// entities 404, seat contention and wrong-state operations 409, requests
// that can never succeed 400, retryable contention 503.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrTripNotFound),
		errors.Is(err, service.ErrSeatNotFound),
		errors.Is(err, service.ErrHoldNotFound),
		errors.Is(err, service.ErrTicketNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrSeatBooked),
		errors.Is(err, service.ErrSeatHeld),
		errors.Is(err, service.ErrHoldNotActive),
		errors.Is(err, service.ErrHoldExpired),
		errors.Is(err, service.ErrTicketNotScannable),
		errors.Is(err, service.ErrTicketNotCancellable),
		errors.Is(err, service.ErrTicketUsed),
		errors.Is(err, service.ErrCancelWindowClosed),
		errors.Is(err, service.ErrIllegalTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrDriverSeat),
		errors.Is(err, service.ErrSalesClosed),
		errors.Is(err, service.ErrTripDeparted),
		errors.Is(err, service.ErrInsufficientSeats),
		errors.Is(err, service.ErrVehicleMismatch),
		errors.Is(err, service.ErrNoSeatsRequested),
		errors.Is(err, service.ErrDuplicateSeats):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case service.IsTransient(err):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func tripIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid trip id")
	}
	return uint(id), nil
}

func (h *BookingHandler) CreateHold(c echo.Context) error {
	tripID, err := tripIDParam(c)
	if err != nil {
		return err
	}

	var req dto.CreateHoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SeatNumber == "" || req.CustomerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "seat_number and customer_id are required")
	}

	hold, ticket, err := h.svc.CreateHold(c.Request().Context(), tripID, req.SeatNumber, req.CustomerID, req.Price)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToHoldResponse(hold, ticket.BookingRef))
}

func (h *BookingHandler) ConfirmHold(c echo.Context) error {
	token := c.Param("token")

	var req dto.ConfirmHoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ticket, err := h.svc.ConfirmHold(c.Request().Context(), token, req.PaymentRef)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

func (h *BookingHandler) ReleaseHold(c echo.Context) error {
	hold, err := h.svc.ReleaseHold(c.Request().Context(), c.Param("token"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(hold.Status)})
}

func (h *BookingHandler) BookSeat(c echo.Context) error {
	tripID, err := tripIDParam(c)
	if err != nil {
		return err
	}

	var req dto.BookSeatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SeatNumber == "" || req.CustomerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "seat_number and customer_id are required")
	}

	ticket, err := h.svc.BookSeat(c.Request().Context(), tripID, req.SeatNumber, req.CustomerID, req.Price)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToTicketResponse(ticket))
}

func (h *BookingHandler) BookSeatsBulk(c echo.Context) error {
	tripID, err := tripIDParam(c)
	if err != nil {
		return err
	}

	var req dto.BulkBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CustomerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "customer_id is required")
	}

	result, err := h.svc.BookSeatsBulk(c.Request().Context(), tripID, req.VehicleID, req.SeatNumbers, req.CustomerID, req.PricePerSeat)
	if err != nil {
		return toHTTPError(err)
	}

	resp := dto.BulkBookingResponse{
		TotalPrice:     result.TotalPrice,
		AvailableSeats: result.AvailableSeats,
		BookedSeats:    result.BookedSeats,
	}
	for i := range result.Tickets {
		resp.Tickets = append(resp.Tickets, dto.ToTicketResponse(&result.Tickets[i]))
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *BookingHandler) CancelTicket(c echo.Context) error {
	ticket, err := h.svc.CancelTicket(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

func (h *BookingHandler) CheckIn(c echo.Context) error {
	ticket, alreadyUsed, err := h.svc.CheckIn(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return toHTTPError(err)
	}

	msg := "checked in"
	if alreadyUsed {
		msg = "already used"
	}
	return c.JSON(http.StatusOK, dto.CheckInResponse{
		Ticket:      dto.ToTicketResponse(ticket),
		AlreadyUsed: alreadyUsed,
		Message:     msg,
	})
}

func (h *BookingHandler) GetTicket(c echo.Context) error {
	ticket, err := h.svc.GetTicket(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

func (h *BookingHandler) GetSeatMap(c echo.Context) error {
	tripID, err := tripIDParam(c)
	if err != nil {
		return err
	}

	sm, err := h.svc.GetSeatMap(c.Request().Context(), tripID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, sm)
}

func (h *BookingHandler) GetBookedSeats(c echo.Context) error {
	tripID, err := tripIDParam(c)
	if err != nil {
		return err
	}

	seats, err := h.svc.GetBookedSeats(c.Request().Context(), tripID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"trip_id": tripID, "booked_seats": seats})
}

func (h *BookingHandler) AuditCapacity(c echo.Context) error {
	tripID, err := tripIDParam(c)
	if err != nil {
		return err
	}

	audit, err := h.svc.AuditCapacity(c.Request().Context(), tripID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, audit)
}
