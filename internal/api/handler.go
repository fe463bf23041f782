// Package api: HTTP API расписания частных занятий поверх gin.
// Аутентификация внешняя: шлюз передаёт ID пользователя в заголовке X-User-ID.
// От имени администратора зала запрос выполняется только с X-Staff-Token,
// совпадающим с STAFF_TOKEN; без токена в конфиге админский доступ выключен.
package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

const (
	userHeader  = "X-User-ID"
	staffHeader = "X-Staff-Token"
)

type Services struct {
	Scheduling   *service.SchedulingService
	Bookings     *service.BookingService
	Availability *service.AvailabilityService
	Coaches      *service.CoachService
	Users        *service.UserService
	Channels     *service.ChannelService
}

type Handler struct {
	services   Services
	staffToken string
	logger     *zap.Logger
}

// NewHandler: пустой staffToken выключает доступ администратора через HTTP
func NewHandler(services Services, staffToken string, logger *zap.Logger) *Handler {
	return &Handler{
		services:   services,
		staffToken: staffToken,
		logger:     logger,
	}
}

// NewRouter собирает gin.Engine со всеми маршрутами и middleware
func NewRouter(h *Handler, limiter *RateLimiter, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(h.logger), RequestLogger(h.logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}
	h.RegisterRoutes(v1)

	return router
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/slots", h.ListSlots)
	rg.POST("/slots/cancel", h.CancelSlot)

	rg.POST("/bookings", h.CreateBooking)
	rg.GET("/bookings", h.ListBookings)
	rg.GET("/bookings/:id", h.GetBooking)
	rg.POST("/bookings/:id/cancel", h.CancelBooking)
	rg.POST("/bookings/:id/confirm", h.ConfirmBooking)

	rg.POST("/hubs", h.CreateHub)
	rg.GET("/hubs/:id/coaches", h.ListHubCoaches)
	rg.PUT("/coaches/:id/profile", h.UpsertProfile)
	rg.GET("/coaches/:id/bookings/pending", h.ListPending)

	rg.POST("/coaches/:id/windows", h.CreateWindow)
	rg.GET("/coaches/:id/windows", h.ListWindows)
	rg.PUT("/windows/:id", h.UpdateWindow)
	rg.DELETE("/windows/:id", h.DeactivateWindow)

	rg.POST("/coaches/:id/packages", h.CreatePackage)
	rg.GET("/coaches/:id/packages", h.ListPackages)
	rg.PUT("/packages/:id", h.UpdatePackage)

	rg.POST("/users/:id/gymnasts", h.AddGymnast)
	rg.GET("/users/:id/gymnasts", h.ListGymnasts)

	rg.POST("/channels/direct", h.OpenDirectChannel)
}

// ListSlots: календарь: GET /slots?coach_id=|hub_id=&from=&to=
func (h *Handler) ListSlots(c *gin.Context) {
	scope, err := scopeQuery(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	from, err := model.ParseDate(c.Query("from"))
	if err != nil {
		h.writeError(c, errBadRequest("from: "+err.Error()))
		return
	}
	to := from
	if raw := c.Query("to"); raw != "" {
		if to, err = model.ParseDate(raw); err != nil {
			h.writeError(c, errBadRequest("to: "+err.Error()))
			return
		}
	}

	slots, err := h.services.Scheduling.ListBookableSlots(c.Request.Context(), scope, from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"slots": toSlotResponses(slots)})
}

func (h *Handler) CancelSlot(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req slotRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errBadRequest(err.Error()))
		return
	}
	ref, err := req.toRef()
	if err != nil {
		h.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	target, err := h.services.Scheduling.ResolveSlot(ctx, ref)
	if err != nil {
		h.writeError(c, err)
		return
	}

	slot, err := h.services.Scheduling.CancelSlot(ctx, target, actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"slot": toSlotResponse(slot)})
}

// CreateBooking: запись гимнаста на слот
func (h *Handler) CreateBooking(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errBadRequest(err.Error()))
		return
	}
	ref, err := req.toRef()
	if err != nil {
		h.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	slot, err := h.services.Scheduling.ResolveSlot(ctx, ref)
	if err != nil {
		h.writeError(c, err)
		return
	}

	booking, err := h.services.Scheduling.BookSlot(ctx, service.BookRequest{
		Slot:        slot,
		GymnastID:   req.GymnastID,
		Event:       req.Event,
		RequesterID: actor,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"booking": toBookingResponse(booking)})
}

// ListBookings: GET /bookings?coach_id=|requester_id=|gymnast_id=&when=
func (h *Handler) ListBookings(c *gin.Context) {
	var filter model.BookingFilter
	for key, dst := range map[string]**int64{
		"coach_id":     &filter.CoachID,
		"requester_id": &filter.RequesterID,
		"gymnast_id":   &filter.GymnastID,
	} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(c, errBadRequest(key+" must be an integer"))
			return
		}
		*dst = &id
	}

	bookings, err := h.services.Scheduling.ListBookings(c.Request.Context(), filter, model.DateFilter(c.Query("when")))
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"bookings": toBookingResponses(bookings)})
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	booking, err := h.services.Bookings.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"booking": toBookingResponse(booking)})
}

func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	booking, err := h.services.Scheduling.CancelBooking(c.Request.Context(), id, actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"booking": toBookingResponse(booking)})
}

func (h *Handler) ConfirmBooking(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	booking, err := h.services.Bookings.Confirm(c.Request.Context(), id, actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"booking": toBookingResponse(booking)})
}

func (h *Handler) ListPending(c *gin.Context) {
	coachID, ok := h.pathID(c)
	if !ok {
		return
	}
	bookings, err := h.services.Bookings.PendingForCoach(c.Request.Context(), coachID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"bookings": toBookingResponses(bookings)})
}

func (h *Handler) CreateHub(c *gin.Context) {
	if !h.staffOnly(c) {
		return
	}

	var req hubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errBadRequest(err.Error()))
		return
	}

	hub, err := h.services.Coaches.CreateHub(c.Request.Context(), req.Name, req.AutoConfirmBookings)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"hub": hub})
}

func (h *Handler) ListHubCoaches(c *gin.Context) {
	hubID, ok := h.pathID(c)
	if !ok {
		return
	}
	coaches, err := h.services.Coaches.ListCoaches(c.Request.Context(), model.ForHub(hubID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"coaches": coaches})
}

func (h *Handler) UpsertProfile(c *gin.Context) {
	coachID, ok := h.ownCoach(c)
	if !ok {
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errBadRequest(err.Error()))
		return
	}

	profile := &model.CoachProfile{
		CoachID:                coachID,
		HubID:                  req.HubID,
		DisplayName:            strings.TrimSpace(req.DisplayName),
		DefaultDurationMinutes: req.DefaultDurationMinutes,
		DefaultMaxGymnasts:     req.DefaultMaxGymnasts,
		IsActive:               req.IsActive == nil || *req.IsActive,
	}
	if err := h.services.Coaches.UpsertProfile(c.Request.Context(), profile); err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"profile": profile})
}

func (h *Handler) CreateWindow(c *gin.Context) {
	coachID, ok := h.ownCoach(c)
	if !ok {
		return
	}

	in, ok := h.bindWindow(c)
	if !ok {
		return
	}

	window, err := h.services.Availability.CreateWindow(c.Request.Context(), coachID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"window": window})
}

func (h *Handler) ListWindows(c *gin.Context) {
	coachID, ok := h.pathID(c)
	if !ok {
		return
	}
	windows, err := h.services.Availability.ListCoachWindows(c.Request.Context(), coachID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"windows": windows})
}

func (h *Handler) UpdateWindow(c *gin.Context) {
	windowID, ok := h.pathID(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	in, ok := h.bindWindow(c)
	if !ok {
		return
	}

	window, err := h.services.Availability.UpdateWindow(c.Request.Context(), actor, windowID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"window": window})
}

func (h *Handler) DeactivateWindow(c *gin.Context) {
	windowID, ok := h.pathID(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.services.Availability.DeactivateWindow(c.Request.Context(), actor, windowID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) bindWindow(c *gin.Context) (service.WindowInput, bool) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errBadRequest(err.Error()))
		return service.WindowInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		h.writeError(c, err)
		return service.WindowInput{}, false
	}
	return in, true
}

func (h *Handler) CreatePackage(c *gin.Context) {
	coachID, ok := h.ownCoach(c)
	if !ok {
		return
	}

	var req service.PackageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errBadRequest(err.Error()))
		return
	}

	pkg, err := h.services.Coaches.CreatePackage(c.Request.Context(), coachID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"package": pkg})
}

func (h *Handler) ListPackages(c *gin.Context) {
	coachID, ok := h.pathID(c)
	if !ok {
		return
	}
	activeOnly := c.Query("all") != "true"

	packages, err := h.services.Coaches.ListPackages(c.Request.Context(), coachID, activeOnly)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"packages": packages})
}

func (h *Handler) UpdatePackage(c *gin.Context) {
	packageID, ok := h.pathID(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req service.PackageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errBadRequest(err.Error()))
		return
	}

	pkg, err := h.services.Coaches.UpdatePackage(c.Request.Context(), actor, packageID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"package": pkg})
}

func (h *Handler) AddGymnast(c *gin.Context) {
	if !h.staffOnly(c) {
		return
	}
	guardianID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req gymnastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errBadRequest(err.Error()))
		return
	}

	gymnast, err := h.services.Users.AddGymnast(c.Request.Context(), req.HubID, guardianID, req.FullName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"gymnast": gymnast})
}

func (h *Handler) ListGymnasts(c *gin.Context) {
	guardianID, ok := h.pathID(c)
	if !ok {
		return
	}
	gymnasts, err := h.services.Users.ListGymnasts(c.Request.Context(), guardianID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"gymnasts": gymnasts})
}

func (h *Handler) OpenDirectChannel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if actor == service.SystemActor {
		h.writeError(c, errBadRequest(userHeader+" header is required"))
		return
	}

	var req directChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errBadRequest(err.Error()))
		return
	}

	channel, err := h.services.Channels.GetOrCreateDirect(c.Request.Context(), actor, req.RecipientID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"channel": channel})
}

// actor возвращает ID пользователя из заголовка; без него пускает только администратора с токеном
func (h *Handler) actor(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(userHeader)
	if raw == "" {
		if h.isStaff(c) {
			return service.SystemActor, true
		}
		h.writeError(c, errUnauthenticated)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, errBadRequest(userHeader+" must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, errBadRequest("invalid id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) isStaff(c *gin.Context) bool {
	token := c.GetHeader(staffHeader)
	if h.staffToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.staffToken)) == 1
}

// ownCoach: менять настройки тренера может сам тренер или администратор
func (h *Handler) ownCoach(c *gin.Context) (int64, bool) {
	coachID, ok := h.pathID(c)
	if !ok {
		return 0, false
	}
	actor, ok := h.actor(c)
	if !ok {
		return 0, false
	}
	if actor != service.SystemActor && actor != coachID {
		h.writeError(c, service.ErrForbidden)
		return 0, false
	}
	return coachID, true
}

func (h *Handler) staffOnly(c *gin.Context) bool {
	actor, ok := h.actor(c)
	if !ok {
		return false
	}
	if actor != service.SystemActor {
		h.writeError(c, service.ErrForbidden)
		return false
	}
	return true
}

func scopeQuery(c *gin.Context) (model.CoachScope, error) {
	var scope model.CoachScope
	if raw := c.Query("coach_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return scope, errBadRequest("coach_id must be an integer")
		}
		scope.CoachID = &id
	}
	if raw := c.Query("hub_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return scope, errBadRequest("hub_id must be an integer")
		}
		scope.HubID = &id
	}
	if scope.IsEmpty() {
		return scope, errBadRequest("coach_id or hub_id is required")
	}
	return scope, nil
}
