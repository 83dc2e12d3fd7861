package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hotel-booking-backend/config"
	"hotel-booking-backend/internal/api"
	"hotel-booking-backend/internal/availability"
	"hotel-booking-backend/internal/booking"
	"hotel-booking-backend/internal/dbtest"
	"hotel-booking-backend/internal/event"
	"hotel-booking-backend/internal/gateway"
	"hotel-booking-backend/internal/idgen"
	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/mw"
	"hotel-booking-backend/internal/notification"
	"hotel-booking-backend/internal/parse"
	"hotel-booking-backend/internal/payment"
	"hotel-booking-backend/internal/store"
	"hotel-booking-backend/internal/sweeper"
)

type clock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

type checkoutGateway struct{}

func (checkoutGateway) Initialize(_ context.Context, req gateway.InitializeRequest) (*gateway.Checkout, error) {
	return &gateway.Checkout{CheckoutURL: "https://checkout.chapa.co/" + req.TxRef, Reference: req.TxRef, Raw: json.RawMessage(`{}`)}, nil
}

func (checkoutGateway) Verify(_ context.Context, txRef string) (*gateway.Verification, error) {
	return &gateway.Verification{TxRef: txRef, Status: gateway.StatusSuccess}, nil
}

// eventLog is a dispatcher consumer that records delivered events.
type eventLog struct {
	mu     sync.Mutex
	events []event.Event
}

func (l *eventLog) Name() string { return "test" }

func (l *eventLog) Handle(_ context.Context, e event.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) count(kind event.Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type system struct {
	db      *gorm.DB
	fx      dbtest.Fixture
	clock   *clock
	events  *eventLog
	sweeper *sweeper.Service
	router  *gin.Engine
}

func newSystem(t *testing.T, rooms ...string) *system {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB := dbtest.Open(t)
	fx := dbtest.Seed(t, gormDB, 1000, rooms...)
	clk := &clock{}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	events := &eventLog{}
	dispatcher := notification.NewWorkerPool(2, 16)
	dispatcher.Subscribe(events)
	dispatcher.Start(ctx)

	s := store.NewGormStore(gormDB)
	oracle := availability.NewOracle(s)
	coordinator := booking.NewCoordinator(s, oracle, dispatcher, idgen.Random{}, booking.Options{
		ExpiryWindow: 15 * time.Minute,
		TaxRate:      0.15,
		Now:          clk.Now,
	})
	reconciler := payment.NewReconciler(s, checkoutGateway{}, dispatcher, idgen.Random{}, payment.Options{Now: clk.Now})

	h := api.NewHandler(api.Services{
		Store:       s,
		Oracle:      oracle,
		Coordinator: coordinator,
		Reconciler:  reconciler,
		Booking:     config.BookingConfig{CalendarHorizonMonths: 12, UnavailableMonths: 3},
	})
	serverCfg := config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 1}

	return &system{
		db:      gormDB,
		fx:      fx,
		clock:   clk,
		events:  events,
		sweeper: sweeper.NewService(config.SweeperConfig{Enabled: true, Schedule: "* * * * *"}, coordinator),
		router:  api.NewRouter(h, serverCfg, log.New(io.Discard, "", 0)),
	}
}

func (s *system) call(t *testing.T, method, target string, body any, userID string, roles string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(mw.UserIDHeader, userID)
	}
	if roles != "" {
		req.Header.Set(mw.RolesHeader, roles)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func day(n int) string {
	return model.Day(time.Now()).AddDate(0, 0, n).Format(parse.DateLayout)
}

func (s *system) book(t *testing.T, userID string, method model.PaymentMethod, in, out int) *httptest.ResponseRecorder {
	return s.call(t, http.MethodPost, "/api/v1/bookings", gin.H{
		"hotel_id":         s.fx.Hotel.ID,
		"room_type_id":     s.fx.RoomType.ID,
		"check_in_date":    day(in),
		"check_out_date":   day(out),
		"number_of_adults": 1,
		"payment_method":   method,
		"guests":           []gin.H{{"first_name": "Sara", "last_name": "Tesfaye", "is_primary": true}},
	}, userID, "")
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func decodeBooking(t *testing.T, w *httptest.ResponseRecorder) model.Booking {
	t.Helper()
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var b model.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b
}

func (s *system) room(t *testing.T, id int64) model.Room {
	t.Helper()
	var r model.Room
	require.NoError(t, s.db.First(&r, id).Error)
	return r
}

// TestQuoteForTwoNights prices a two night stay in a 1000/night room with
// no rate rules.
func TestQuoteForTwoNights(t *testing.T) {
	sys := newSystem(t, "101")

	b := decodeBooking(t, sys.book(t, "10", model.PayAtHotel, 30, 32))
	assert.Equal(t, 2, b.NumberOfNights)
	assert.Equal(t, 1000.0, b.PricePerNight)
	assert.Equal(t, 2000.0, b.Subtotal)
	assert.Equal(t, 300.0, b.TaxAmount)
	assert.Equal(t, 2300.0, b.TotalAmount)
	assert.Equal(t, model.RoundMoney(b.PricePerNight*float64(b.NumberOfNights)*1.15), b.TotalAmount)

	assert.Eventually(t, func() bool { return sys.events.count(event.BookingCreated) == 1 }, time.Second, 10*time.Millisecond)
}

// TestSimultaneousBookingsOfOneRoom races two guests for the last room.
func TestSimultaneousBookingsOfOneRoom(t *testing.T) {
	sys := newSystem(t, "101")

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, user := range []string{"21", "22"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			codes[i] = sys.book(t, user, model.PayAtHotel, 40, 43).Code
		}(i, user)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, codes)

	var live int64
	require.NoError(t, sys.db.Model(&model.Booking{}).Where("status = ?", model.BookingConfirmed).Count(&live).Error)
	assert.Equal(t, int64(1), live)

	// A back-to-back stay starting on the checkout day is still bookable.
	decodeBooking(t, sys.book(t, "23", model.PayAtHotel, 43, 45))
}

// TestUnpaidBookingExpires lets the payment window lapse and runs the sweeper.
func TestUnpaidBookingExpires(t *testing.T) {
	sys := newSystem(t, "101")
	roomID := sys.fx.Rooms[0].ID

	b := decodeBooking(t, sys.book(t, "30", model.PayNow, 5, 8))
	require.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, model.RoomOccupied, sys.room(t, roomID).Status)

	sys.clock.Advance(10 * time.Minute)
	assert.Equal(t, 0, sys.sweeper.SweepOnce(context.Background()), "still inside the payment window")

	sys.clock.Advance(10 * time.Minute)
	assert.Equal(t, 1, sys.sweeper.SweepOnce(context.Background()))

	w := sys.call(t, http.MethodGet, "/api/v1/bookings/"+b.BookingNumber, nil, "30", "")
	require.Equal(t, http.StatusOK, w.Code)
	var expired model.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &expired))
	assert.Equal(t, model.BookingCancelled, expired.Status)
	assert.Equal(t, booking.ExpiryReason, expired.CancellationReason)
	assert.Nil(t, expired.CancelledBy)

	assert.Equal(t, model.RoomAvailable, sys.room(t, roomID).Status)

	w = sys.call(t, http.MethodGet, "/api/v1/rooms/"+itoa(roomID)+"/unavailable-dates", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"room_id":`+itoa(roomID)+`,"unavailable_dates":[]}`, w.Body.String())

	decodeBooking(t, sys.book(t, "31", model.PayAtHotel, 5, 8))
}

// TestCancelCheckedInBooking cancels a stay that is in progress.
func TestCancelCheckedInBooking(t *testing.T) {
	sys := newSystem(t, "101")
	roomID := sys.fx.Rooms[0].ID

	b := decodeBooking(t, sys.book(t, "40", model.PayAtHotel, 1, 3))
	w := sys.call(t, http.MethodPut, "/api/v1/bookings/"+b.BookingNumber+"/check-in", nil, "900", "receptionist")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, model.RoomOccupied, sys.room(t, roomID).Status)

	w = sys.call(t, http.MethodPut, "/api/v1/bookings/"+b.BookingNumber+"/cancel", gin.H{"reason": "Family emergency"}, "40", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cancelled model.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelled))
	assert.Equal(t, model.BookingCancelled, cancelled.Status)
	assert.Equal(t, "Family emergency", cancelled.CancellationReason)

	assert.Equal(t, model.RoomOccupied, sys.room(t, roomID).Status, "room status is left for housekeeping")

	w = sys.call(t, http.MethodPut, "/api/v1/bookings/"+b.BookingNumber+"/check-out", nil, "900", "receptionist")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// TestWebhookDeliveredTwice replays a successful payment notification.
func TestWebhookDeliveredTwice(t *testing.T) {
	sys := newSystem(t, "101")

	b := decodeBooking(t, sys.book(t, "50", model.PayNow, 12, 14))
	w := sys.call(t, http.MethodPost, "/api/v1/payments/chapa/initialize", gin.H{"booking_number": b.BookingNumber}, "50", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var initialized struct {
		Data payment.Checkout `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &initialized))

	webhook := gin.H{"tx_ref": initialized.Data.TransactionID, "status": "success", "reference": "CHx-1"}
	for i := 0; i < 2; i++ {
		w = sys.call(t, http.MethodPost, "/api/v1/payments/chapa/webhook", webhook, "", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	var completed int64
	require.NoError(t, sys.db.Model(&model.Payment{}).
		Where("booking_id = ? AND status = ?", b.ID, model.PaymentCompleted).
		Count(&completed).Error)
	assert.Equal(t, int64(1), completed)

	var confirmed model.Booking
	require.NoError(t, sys.db.First(&confirmed, b.ID).Error)
	assert.Equal(t, model.BookingConfirmed, confirmed.Status)
	assert.Nil(t, confirmed.ExpiresAt)

	assert.Eventually(t, func() bool { return sys.events.count(event.PaymentSuccessful) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, sys.events.count(event.PaymentSuccessful))

	// A confirmed booking is not swept once its old deadline passes.
	sys.clock.Advance(time.Hour)
	assert.Equal(t, 0, sys.sweeper.SweepOnce(context.Background()))
}
