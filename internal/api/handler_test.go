package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/lock"
	"github.com/Freeeeeet/lesson_scheduler/internal/metrics"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

const staffToken = "front-desk-secret"

type testEnv struct {
	router   *gin.Engine
	services Services

	coachID    int64
	guardianID int64
	gymnastID  int64
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupRouter(t *testing.T, ratePerMinute int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	logger := zap.NewNop()
	store := memory.NewStore()
	clk := clock.Fixed(monday.Add(8 * time.Hour))
	registry := prometheus.NewRegistry()
	m := metrics.NewSchedulingMetrics(registry)

	ledger := service.NewBookingService(store, clk, events.Nop{}, m, logger)
	services := Services{
		Scheduling:   service.NewSchedulingService(store, ledger, lock.NewMemory(), clk, service.DefaultSchedulingConfig(), m, logger),
		Bookings:     ledger,
		Availability: service.NewAvailabilityService(store, logger),
		Coaches:      service.NewCoachService(store, logger),
		Users:        service.NewUserService(store, logger),
		Channels:     service.NewChannelService(store, logger),
	}

	hub, err := services.Coaches.CreateHub(ctx, "Flip Gym", false)
	require.NoError(t, err)
	coach, err := services.Users.RegisterTelegramUser(ctx, 1, "coach", "Anna", "")
	require.NoError(t, err)
	guardian, err := services.Users.RegisterTelegramUser(ctx, 2, "parent", "Oleg", "")
	require.NoError(t, err)
	gymnast, err := services.Users.AddGymnast(ctx, hub.ID, guardian.ID, "Masha")
	require.NoError(t, err)
	require.NoError(t, services.Coaches.UpsertProfile(ctx, &model.CoachProfile{
		CoachID:  coach.ID,
		HubID:    hub.ID,
		IsActive: true,
	}))

	router := NewRouter(NewHandler(services, staffToken, logger), NewRateLimiter(ratePerMinute, logger), registry)

	return &testEnv{
		router:     router,
		services:   services,
		coachID:    coach.ID,
		guardianID: guardian.ID,
		gymnastID:  gymnast.ID,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, userID int64) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	headers := map[string]string{}
	if userID != 0 {
		headers[userHeader] = fmt.Sprint(userID)
	}
	return e.doWithHeaders(t, method, path, body, headers)
}

func (e *testEnv) doWithHeaders(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)

	var env envelope
	if resp.Body.Len() > 0 && resp.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	}
	return resp, env
}

func (e *testEnv) createWindow(t *testing.T) {
	t.Helper()
	resp, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/coaches/%d/windows", e.coachID), gin.H{
		"day_of_week": 1,
		"start_time":  "13:00",
		"end_time":    "14:30",
	}, e.coachID)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/coaches/%d/packages", e.coachID), gin.H{
		"name":             "Private 45",
		"duration_minutes": 45,
		"price":            4500,
		"max_gymnasts":     1,
	}, e.coachID)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	e := setupRouter(t, 0)

	resp, _ := e.do(t, http.MethodGet, "/healthz", nil, 0)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, _ = e.do(t, http.MethodGet, "/metrics", nil, 0)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSlotsAndBookingFlow(t *testing.T) {
	e := setupRouter(t, 0)
	e.createWindow(t)

	resp, env := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/slots?coach_id=%d&from=2025-03-03", e.coachID), nil, e.guardianID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var listed struct {
		Slots []slotResponse `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed.Slots, 2)
	assert.Equal(t, model.SlotKindVirtual, listed.Slots[0].Kind)
	assert.Nil(t, listed.Slots[0].SlotID)
	assert.Equal(t, model.NewTimeOfDay(13, 45), listed.Slots[0].EndTime)

	booking := gin.H{
		"coach_id":   e.coachID,
		"date":       "2025-03-03",
		"start_time": "13:00",
		"gymnast_id": e.gymnastID,
		"event":      "bars",
	}
	resp, env = e.do(t, http.MethodPost, "/api/v1/bookings", booking, e.guardianID)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created struct {
		Booking bookingResponse `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, model.BookingStatusPending, created.Booking.Status)
	assert.Equal(t, "2025-03-03", created.Booking.Date)

	resp, env = e.do(t, http.MethodPost, "/api/v1/bookings", booking, e.guardianID)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "ALREADY_BOOKED", env.Error.Code)

	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/confirm", created.Booking.ID), nil, e.guardianID)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp, env = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/confirm", created.Booking.ID), nil, e.coachID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp, env = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings?gymnast_id=%d&when=upcoming", e.gymnastID), nil, e.guardianID)
	require.Equal(t, http.StatusOK, resp.Code)
	var listedBookings struct {
		Bookings []bookingResponse `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listedBookings))
	require.Len(t, listedBookings.Bookings, 1)
	assert.Equal(t, model.BookingStatusConfirmed, listedBookings.Bookings[0].Status)

	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/cancel", created.Booking.ID), nil, e.guardianID)
	require.Equal(t, http.StatusOK, resp.Code)

	resp, env = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/cancel", created.Booking.ID), nil, e.guardianID)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)
}

func TestCreateBooking_ErrorMapping(t *testing.T) {
	e := setupRouter(t, 0)
	e.createWindow(t)

	tests := []struct {
		name   string
		body   gin.H
		status int
		code   string
	}{
		{
			name:   "past date",
			body:   gin.H{"coach_id": e.coachID, "date": "2025-03-02", "start_time": "13:00", "gymnast_id": e.gymnastID, "event": "beam"},
			status: http.StatusGone,
			code:   "SLOT_EXPIRED",
		},
		{
			name:   "no slot at coordinate",
			body:   gin.H{"coach_id": e.coachID, "date": "2025-03-03", "start_time": "13:10", "gymnast_id": e.gymnastID, "event": "beam"},
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "missing slot reference",
			body:   gin.H{"gymnast_id": e.gymnastID, "event": "beam"},
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
		{
			name:   "missing event",
			body:   gin.H{"coach_id": e.coachID, "date": "2025-03-03", "start_time": "13:00", "gymnast_id": e.gymnastID},
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := e.do(t, http.MethodPost, "/api/v1/bookings", tt.body, e.guardianID)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestCreateBooking_SlotFull(t *testing.T) {
	e := setupRouter(t, 0)
	e.createWindow(t)

	other, err := e.services.Users.AddGymnast(context.Background(), 1, e.guardianID, "Dasha")
	require.NoError(t, err)

	body := gin.H{"coach_id": e.coachID, "date": "2025-03-03", "start_time": "13:45", "event": "floor"}

	body["gymnast_id"] = e.gymnastID
	resp, _ := e.do(t, http.MethodPost, "/api/v1/bookings", body, e.guardianID)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	body["gymnast_id"] = other.ID
	resp, env := e.do(t, http.MethodPost, "/api/v1/bookings", body, e.guardianID)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "SLOT_FULL", env.Error.Code)
}

func TestWindows_Validation(t *testing.T) {
	e := setupRouter(t, 0)

	path := fmt.Sprintf("/api/v1/coaches/%d/windows", e.coachID)

	resp, env := e.do(t, http.MethodPost, path, gin.H{"day_of_week": 1, "start_time": "15:00", "end_time": "14:00"}, e.coachID)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "INVALID_WINDOW", env.Error.Code)

	resp, _ = e.do(t, http.MethodPost, path, gin.H{"day_of_week": 1, "start_time": "09:00", "end_time": "10:00"}, e.guardianID)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp, _ = e.do(t, http.MethodPost, path, gin.H{"day_of_week": 1, "start_time": "9am", "end_time": "10:00"}, e.coachID)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListSlots_BadQuery(t *testing.T) {
	e := setupRouter(t, 0)

	resp, env := e.do(t, http.MethodGet, "/api/v1/slots?from=2025-03-03", nil, 0)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	resp, env = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/slots?coach_id=%d&from=2025-03-10&to=2025-03-03", e.coachID), nil, 0)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	resp, _ = e.do(t, http.MethodGet, "/api/v1/bookings", nil, 0)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestCancelSlot_BlocksCoordinate(t *testing.T) {
	e := setupRouter(t, 0)
	e.createWindow(t)

	ref := gin.H{"coach_id": e.coachID, "date": "2025-03-03", "start_time": "13:45"}
	resp, _ := e.do(t, http.MethodPost, "/api/v1/slots/cancel", ref, e.guardianID)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp, _ = e.do(t, http.MethodPost, "/api/v1/slots/cancel", ref, e.coachID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp, env := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/slots?coach_id=%d&from=2025-03-03", e.coachID), nil, 0)
	require.Equal(t, http.StatusOK, resp.Code)
	var listed struct {
		Slots []slotResponse `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed.Slots, 1)
	assert.Equal(t, model.NewTimeOfDay(13, 0), listed.Slots[0].StartTime)
}

func TestDirectChannel(t *testing.T) {
	e := setupRouter(t, 0)

	resp, _ := e.do(t, http.MethodPost, "/api/v1/channels/direct", gin.H{"recipient_id": e.coachID}, 0)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, _ = e.do(t, http.MethodPost, "/api/v1/channels/direct", gin.H{"recipient_id": e.coachID}, e.guardianID)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, _ = e.do(t, http.MethodPost, "/api/v1/channels/direct", gin.H{"recipient_id": e.guardianID}, e.guardianID)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestActor_StaffRequiresToken(t *testing.T) {
	e := setupRouter(t, 0)
	hub := gin.H{"name": "Second Gym"}

	resp, env := e.do(t, http.MethodPost, "/api/v1/hubs", hub, 0)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	resp, _ = e.doWithHeaders(t, http.MethodPost, "/api/v1/hubs", hub, map[string]string{staffHeader: "guess"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, _ = e.do(t, http.MethodPost, "/api/v1/hubs", hub, e.guardianID)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp, _ = e.doWithHeaders(t, http.MethodPost, "/api/v1/hubs", hub, map[string]string{staffHeader: staffToken})
	assert.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	// без анонимного доступа запись на слот тоже не пройдёт
	e.createWindow(t)
	resp, _ = e.do(t, http.MethodPost, "/api/v1/bookings", gin.H{
		"coach_id": e.coachID, "date": "2025-03-03", "start_time": "13:00",
		"gymnast_id": e.gymnastID, "event": "vault",
	}, 0)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestActor_StaffDisabledWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(Services{}, "", zap.NewNop())
	router := gin.New()
	router.POST("/hubs", h.CreateHub)

	req := httptest.NewRequest(http.MethodPost, "/hubs", bytes.NewBufferString(`{"name":"x"}`))
	req.Header.Set(staffHeader, "anything")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRateLimiter(t *testing.T) {
	e := setupRouter(t, 4)

	path := fmt.Sprintf("/api/v1/coaches/%d/windows", e.coachID)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := e.do(t, http.MethodGet, path, nil, 0)
		codes = append(codes, resp.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)

	resp, _ := e.do(t, http.MethodGet, "/healthz", nil, 0)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRateLimiter_Sweep(t *testing.T) {
	limiter := NewRateLimiter(60, zap.NewNop())
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.limiterFor("10.0.0.1")
	now = now.Add(10 * time.Minute)
	limiter.limiterFor("10.0.0.2")

	assert.Equal(t, 1, limiter.Sweep(5*time.Minute))
	assert.Len(t, limiter.clients, 1)
}
