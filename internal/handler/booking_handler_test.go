package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sala-transit/reservation-service/internal/dto"
	"github.com/sala-transit/reservation-service/internal/models"
	"github.com/sala-transit/reservation-service/internal/service"
	"github.com/stretchr/testify/assert"
)

// --- Mock BookingService ---

type mockBookingService struct {
	createHoldFn  func(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.ReservationHold, *models.Ticket, error)
	confirmHoldFn func(ctx context.Context, holdToken, paymentRef string) (*models.Ticket, error)
	releaseHoldFn func(ctx context.Context, holdToken string) (*models.ReservationHold, error)
	bookSeatFn    func(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.Ticket, error)
	bookBulkFn    func(ctx context.Context, tripID, vehicleID uint, seatNumbers []string, customerID string, pricePerSeat float64) (*service.BulkBookingResult, error)
	cancelFn      func(ctx context.Context, bookingRef string) (*models.Ticket, error)
	checkInFn     func(ctx context.Context, bookingRef string) (*models.Ticket, bool, error)
	getTicketFn   func(ctx context.Context, bookingRef string) (*models.Ticket, error)
	seatMapFn     func(ctx context.Context, tripID uint) (*service.SeatMap, error)
	bookedSeatsFn func(ctx context.Context, tripID uint) ([]string, error)
	auditFn       func(ctx context.Context, tripID uint) (*service.CapacityAudit, error)
}

func (m *mockBookingService) CreateHold(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.ReservationHold, *models.Ticket, error) {
	return m.createHoldFn(ctx, tripID, seatNumber, customerID, price)
}
func (m *mockBookingService) ConfirmHold(ctx context.Context, holdToken, paymentRef string) (*models.Ticket, error) {
	return m.confirmHoldFn(ctx, holdToken, paymentRef)
}
func (m *mockBookingService) ReleaseHold(ctx context.Context, holdToken string) (*models.ReservationHold, error) {
	return m.releaseHoldFn(ctx, holdToken)
}
func (m *mockBookingService) BookSeat(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.Ticket, error) {
	return m.bookSeatFn(ctx, tripID, seatNumber, customerID, price)
}
func (m *mockBookingService) BookSeatsBulk(ctx context.Context, tripID, vehicleID uint, seatNumbers []string, customerID string, pricePerSeat float64) (*service.BulkBookingResult, error) {
	return m.bookBulkFn(ctx, tripID, vehicleID, seatNumbers, customerID, pricePerSeat)
}
func (m *mockBookingService) CancelTicket(ctx context.Context, bookingRef string) (*models.Ticket, error) {
	return m.cancelFn(ctx, bookingRef)
}
func (m *mockBookingService) CheckIn(ctx context.Context, bookingRef string) (*models.Ticket, bool, error) {
	return m.checkInFn(ctx, bookingRef)
}
func (m *mockBookingService) GetTicket(ctx context.Context, bookingRef string) (*models.Ticket, error) {
	return m.getTicketFn(ctx, bookingRef)
}
func (m *mockBookingService) GetSeatMap(ctx context.Context, tripID uint) (*service.SeatMap, error) {
	return m.seatMapFn(ctx, tripID)
}
func (m *mockBookingService) GetBookedSeats(ctx context.Context, tripID uint) ([]string, error) {
	return m.bookedSeatsFn(ctx, tripID)
}
func (m *mockBookingService) AuditCapacity(ctx context.Context, tripID uint) (*service.CapacityAudit, error) {
	return m.auditFn(ctx, tripID)
}

func newContext(e *echo.Echo, method, path, body string, paramName, paramValue string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(paramName)
	c.SetParamValues(paramValue)
	return c, rec
}

// --- Tests ---

func TestCreateHold_Handler_Success(t *testing.T) {
	expires := time.Now().Add(10 * time.Minute)
	svc := &mockBookingService{
		createHoldFn: func(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.ReservationHold, *models.Ticket, error) {
			hold := &models.ReservationHold{
				HoldToken:  "tok-1",
				TripID:     tripID,
				SeatNumber: seatNumber,
				CustomerID: customerID,
				Status:     models.HoldActive,
				ExpiresAt:  expires,
			}
			ticket := &models.Ticket{BookingRef: "ref-1", Status: models.TicketPendingPayment}
			return hold, ticket, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodPost, "/api/v1/trips/1/holds",
		`{"seat_number":"2","customer_id":"cust-1","price":350}`, "id", "1")

	h := NewBookingHandler(svc)
	err := h.CreateHold(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.HoldResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tok-1", resp.HoldToken)
	assert.Equal(t, "ref-1", resp.BookingRef)
	assert.Equal(t, models.HoldActive, resp.Status)
}

func TestCreateHold_Handler_MissingFields(t *testing.T) {
	e := echo.New()
	c, _ := newContext(e, http.MethodPost, "/api/v1/trips/1/holds",
		`{"seat_number":""}`, "id", "1")

	h := NewBookingHandler(nil)
	err := h.CreateHold(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCreateHold_Handler_SeatHeld(t *testing.T) {
	svc := &mockBookingService{
		createHoldFn: func(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.ReservationHold, *models.Ticket, error) {
			return nil, nil, service.ErrSeatHeld
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodPost, "/api/v1/trips/1/holds",
		`{"seat_number":"2","customer_id":"cust-1"}`, "id", "1")

	h := NewBookingHandler(svc)
	err := h.CreateHold(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestCreateHold_Handler_DriverSeat(t *testing.T) {
	svc := &mockBookingService{
		createHoldFn: func(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.ReservationHold, *models.Ticket, error) {
			return nil, nil, service.ErrDriverSeat
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodPost, "/api/v1/trips/1/holds",
		`{"seat_number":"D","customer_id":"cust-1"}`, "id", "1")

	h := NewBookingHandler(svc)
	err := h.CreateHold(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestConfirmHold_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		confirmHoldFn: func(ctx context.Context, holdToken, paymentRef string) (*models.Ticket, error) {
			return &models.Ticket{BookingRef: "ref-1", Status: models.TicketConfirmed}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodPost, "/api/v1/holds/tok-1/confirm",
		`{"payment_ref":"pay-9"}`, "token", "tok-1")

	h := NewBookingHandler(svc)
	err := h.ConfirmHold(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.TicketResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.TicketConfirmed, resp.Status)
}

func TestConfirmHold_Handler_Expired(t *testing.T) {
	svc := &mockBookingService{
		confirmHoldFn: func(ctx context.Context, holdToken, paymentRef string) (*models.Ticket, error) {
			return nil, service.ErrHoldExpired
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodPost, "/api/v1/holds/tok-1/confirm", "", "token", "tok-1")

	h := NewBookingHandler(svc)
	err := h.ConfirmHold(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestConfirmHold_Handler_NotFound(t *testing.T) {
	svc := &mockBookingService{
		confirmHoldFn: func(ctx context.Context, holdToken, paymentRef string) (*models.Ticket, error) {
			return nil, service.ErrHoldNotFound
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodPost, "/api/v1/holds/missing/confirm", "", "token", "missing")

	h := NewBookingHandler(svc)
	err := h.ConfirmHold(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestReleaseHold_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		releaseHoldFn: func(ctx context.Context, holdToken string) (*models.ReservationHold, error) {
			return &models.ReservationHold{HoldToken: holdToken, Status: models.HoldReleased}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodDelete, "/api/v1/holds/tok-1", "", "token", "tok-1")

	h := NewBookingHandler(svc)
	err := h.ReleaseHold(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "released")
}

func TestBookSeat_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		bookSeatFn: func(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.Ticket, error) {
			return &models.Ticket{
				BookingRef: "ref-1",
				TripID:     tripID,
				SeatNumber: seatNumber,
				CustomerID: customerID,
				Price:      price,
				Status:     models.TicketConfirmed,
			}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodPost, "/api/v1/trips/1/bookings",
		`{"seat_number":"2","customer_id":"cust-1","price":350}`, "id", "1")

	h := NewBookingHandler(svc)
	err := h.BookSeat(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.TicketResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2", resp.SeatNumber)
	assert.Equal(t, models.TicketConfirmed, resp.Status)
}

func TestBookSeat_Handler_Conflict(t *testing.T) {
	svc := &mockBookingService{
		bookSeatFn: func(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.Ticket, error) {
			return nil, service.ErrSeatBooked
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodPost, "/api/v1/trips/1/bookings",
		`{"seat_number":"2","customer_id":"cust-2"}`, "id", "1")

	h := NewBookingHandler(svc)
	err := h.BookSeat(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestBookSeat_Handler_Transient(t *testing.T) {
	svc := &mockBookingService{
		bookSeatFn: func(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.Ticket, error) {
			return nil, service.ErrTxConflict
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodPost, "/api/v1/trips/1/bookings",
		`{"seat_number":"2","customer_id":"cust-1"}`, "id", "1")

	h := NewBookingHandler(svc)
	err := h.BookSeat(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, he.Code, "transient failures should signal retry")
}

func TestBookSeatsBulk_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		bookBulkFn: func(ctx context.Context, tripID, vehicleID uint, seatNumbers []string, customerID string, pricePerSeat float64) (*service.BulkBookingResult, error) {
			tickets := make([]models.Ticket, len(seatNumbers))
			for i, sn := range seatNumbers {
				tickets[i] = models.Ticket{BookingRef: "ref-" + sn, SeatNumber: sn, Status: models.TicketConfirmed}
			}
			return &service.BulkBookingResult{
				Tickets:        tickets,
				TotalPrice:     pricePerSeat * float64(len(seatNumbers)),
				AvailableSeats: 2,
				BookedSeats:    2,
			}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodPost, "/api/v1/trips/1/bookings/bulk",
		`{"vehicle_id":7,"seat_numbers":["2","3"],"customer_id":"cust-1","price_per_seat":350}`, "id", "1")

	h := NewBookingHandler(svc)
	err := h.BookSeatsBulk(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.BulkBookingResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Tickets, 2)
	assert.Equal(t, 700.0, resp.TotalPrice)
	assert.Equal(t, 2, resp.AvailableSeats)
}

func TestBookSeatsBulk_Handler_InsufficientSeats(t *testing.T) {
	svc := &mockBookingService{
		bookBulkFn: func(ctx context.Context, tripID, vehicleID uint, seatNumbers []string, customerID string, pricePerSeat float64) (*service.BulkBookingResult, error) {
			return nil, service.ErrInsufficientSeats
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodPost, "/api/v1/trips/1/bookings/bulk",
		`{"seat_numbers":["2","3","4"],"customer_id":"cust-1"}`, "id", "1")

	h := NewBookingHandler(svc)
	err := h.BookSeatsBulk(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCancelTicket_Handler_WindowClosed(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, bookingRef string) (*models.Ticket, error) {
			return nil, service.ErrCancelWindowClosed
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodDelete, "/api/v1/tickets/ref-1", "", "ref", "ref-1")

	h := NewBookingHandler(svc)
	err := h.CancelTicket(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestCancelTicket_Handler_CheckedIn(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, bookingRef string) (*models.Ticket, error) {
			return nil, service.ErrTicketUsed
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodDelete, "/api/v1/tickets/ref-1", "", "ref", "ref-1")

	h := NewBookingHandler(svc)
	err := h.CancelTicket(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestCheckIn_Handler_FirstScan(t *testing.T) {
	svc := &mockBookingService{
		checkInFn: func(ctx context.Context, bookingRef string) (*models.Ticket, bool, error) {
			now := time.Now()
			return &models.Ticket{BookingRef: bookingRef, Status: models.TicketCheckedIn, CheckedInAt: &now}, false, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodPost, "/api/v1/tickets/ref-1/check-in", "", "ref", "ref-1")

	h := NewBookingHandler(svc)
	err := h.CheckIn(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.CheckInResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.AlreadyUsed)
	assert.Equal(t, "checked in", resp.Message)
}

func TestCheckIn_Handler_Rescan(t *testing.T) {
	svc := &mockBookingService{
		checkInFn: func(ctx context.Context, bookingRef string) (*models.Ticket, bool, error) {
			return &models.Ticket{BookingRef: bookingRef, Status: models.TicketCheckedIn}, true, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodPost, "/api/v1/tickets/ref-1/check-in", "", "ref", "ref-1")

	h := NewBookingHandler(svc)
	err := h.CheckIn(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.CheckInResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.AlreadyUsed)
	assert.Equal(t, "already used", resp.Message)
}

func TestGetSeatMap_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		seatMapFn: func(ctx context.Context, tripID uint) (*service.SeatMap, error) {
			return &service.SeatMap{
				TripID: tripID,
				Seats: []service.SeatMapEntry{
					{SeatNumber: "D", State: service.SeatDriver},
					{SeatNumber: "1", State: service.SeatAvailable},
					{SeatNumber: "2", State: service.SeatBooked},
					{SeatNumber: "3", State: service.SeatLocked},
				},
				Available:           1,
				Locked:              1,
				Booked:              1,
				Driver:              1,
				TotalPassengerSeats: 3,
			}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodGet, "/api/v1/trips/1/seat-map", "", "id", "1")

	h := NewBookingHandler(svc)
	err := h.GetSeatMap(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp service.SeatMap
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Seats, 4)
	assert.Equal(t, 1, resp.Booked)
}

func TestGetSeatMap_Handler_TripNotFound(t *testing.T) {
	svc := &mockBookingService{
		seatMapFn: func(ctx context.Context, tripID uint) (*service.SeatMap, error) {
			return nil, service.ErrTripNotFound
		},
	}

	e := echo.New()
	c, _ := newContext(e, http.MethodGet, "/api/v1/trips/999/seat-map", "", "id", "999")

	h := NewBookingHandler(svc)
	err := h.GetSeatMap(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetBookedSeats_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		bookedSeatsFn: func(ctx context.Context, tripID uint) ([]string, error) {
			return []string{"2", "3", "7"}, nil
		},
	}

	e := echo.New()
	c, rec := newContext(e, http.MethodGet, "/api/v1/trips/1/booked-seats", "", "id", "1")

	h := NewBookingHandler(svc)
	err := h.GetBookedSeats(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"booked_seats":["2","3","7"]`)
}

func TestHandler_InvalidTripID(t *testing.T) {
	e := echo.New()
	c, _ := newContext(e, http.MethodGet, "/api/v1/trips/abc/seat-map", "", "id", "abc")

	h := NewBookingHandler(nil)
	err := h.GetSeatMap(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
