package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	profileapp "github.com/freightmarket/backend/internal/application/profile"
	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/auth"
	"github.com/freightmarket/backend/internal/infrastructure/config"
	"github.com/freightmarket/backend/internal/infrastructure/event"
	"github.com/freightmarket/backend/internal/infrastructure/notification"
	"github.com/freightmarket/backend/internal/infrastructure/persistence"
	"github.com/freightmarket/backend/internal/infrastructure/persistence/models"
	"github.com/freightmarket/backend/internal/interfaces/http/dto"
	"github.com/freightmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// fakeObjectStorage presigns deterministic URLs
type fakeObjectStorage struct{}

func (fakeObjectStorage) GenerateUploadURL(_ context.Context, key, _ string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://objects.test/upload/" + key, testNow.Add(expiresIn), nil
}

func (fakeObjectStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://objects.test/download/" + key, testNow.Add(expiresIn), nil
}

// apiHarness serves the marketplace API over a private in-memory SQLite
// database with real repositories, services and JWT authentication
type apiHarness struct {
	engine *gin.Engine
	jwt    *auth.JWTService
	db     *gorm.DB
	hub    *notification.Hub
}

// rawBody is sent verbatim instead of being JSON encoded
type rawBody string

type testUser struct {
	id    uuid.UUID
	role  shared.Role
	token string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	log := zap.NewNop()
	db := newTestDB(t)
	clock := func() time.Time { return testNow }

	loadRepo := persistence.NewGormLoadRepository(db)
	bidRepo := persistence.NewGormBidRepository(db)
	bookingRepo := persistence.NewGormBookingRepository(db)
	profileRepo := persistence.NewGormProfileRepository(db)
	allocationStore := persistence.NewGormAllocationStore(db)
	bookingStore := persistence.NewGormBookingStore(db)

	bus := event.NewInMemoryEventBus(log)
	completed := profileapp.NewBookingCompletedHandler(profileRepo, log)
	rated := profileapp.NewRatingSubmittedHandler(profileRepo, bookingRepo, log)
	bus.Subscribe(completed, completed.EventTypes()...)
	bus.Subscribe(rated, rated.EventTypes()...)

	hub := notification.NewHub(log)
	t.Cleanup(hub.Close)
	notifier := notification.NewNotifier(hub)

	cfg := marketplaceapp.DefaultConfig()
	loadService := marketplaceapp.NewLoadService(loadRepo, allocationStore, log)
	bidService := marketplaceapp.NewBidService(loadRepo, bidRepo, allocationStore, profileRepo, cfg, log)
	allocationService := marketplaceapp.NewAllocationService(loadRepo, bidRepo, allocationStore, profileRepo, log)
	bookingService := marketplaceapp.NewBookingService(bookingRepo, loadRepo, bookingStore, profileRepo, cfg, log)
	bookingService.SetObjectStorage(fakeObjectStorage{})
	for _, c := range []interface {
		SetClock(func() time.Time)
		SetEventPublisher(shared.EventPublisher)
		SetNotifier(marketplaceapp.Notifier)
	}{loadService, bidService, allocationService, bookingService} {
		c.SetClock(clock)
		c.SetEventPublisher(bus)
		c.SetNotifier(notifier)
	}
	profileService := profileapp.NewProfileService(profileRepo, log)
	profileService.SetClock(clock)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "handler-test-secret-with-enough-length",
		Issuer:                "freight-test",
		AccessTokenExpiration: time.Hour,
	})

	loads := NewLoadHandler(loadService)
	bids := NewBidHandler(bidService, allocationService)
	bookings := NewBookingHandler(bookingService)
	profiles := NewProfileHandler(profileService)
	notifications := NewNotificationHandler(hub, []string{"*"})

	engine := gin.New()
	engine.Use(middleware.RequestID())
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.AllowQueryToken = true
	engine.GET("/ws/notifications", middleware.JWTAuthMiddlewareWithConfig(jwtConfig), notifications.Stream)

	api := engine.Group("/api/v1", middleware.JWTAuthMiddleware(jwtService))
	owner := middleware.RequireRole(shared.RoleCargoOwner)
	driver := middleware.RequireRole(shared.RoleDriver)

	api.POST("/loads", owner, loads.Create)
	api.GET("/loads", loads.List)
	api.GET("/loads/:id", loads.GetByID)
	api.POST("/loads/:id/cancel", owner, loads.Cancel)
	api.POST("/loads/:id/close", owner, loads.Close)
	api.POST("/loads/:id/bids", driver, bids.Submit)
	api.GET("/loads/:id/bids", bids.ListForLoad)
	api.GET("/loads/:id/bids/analysis", bids.Analysis)
	api.GET("/bids/:id", bids.GetByID)
	api.POST("/bids/:id/view", owner, bids.MarkViewed)
	api.POST("/bids/:id/accept", owner, bids.Accept)
	api.POST("/bids/:id/reject", owner, bids.Reject)
	api.POST("/bids/:id/withdraw", driver, bids.Withdraw)
	api.POST("/bids/:id/shortlist", owner, bids.Shortlist)
	api.POST("/bids/:id/review", owner, bids.Review)
	api.POST("/bids/:id/counter-offer", owner, bids.CounterOffer)
	api.POST("/bids/:id/counter-offer/respond", driver, bids.RespondCounterOffer)
	api.GET("/me/bids", driver, bids.ListMine)
	api.GET("/me/bookings", bookings.ListMine)
	api.GET("/bookings/:id", bookings.GetByID)
	api.PATCH("/bookings/:id/status", bookings.UpdateStatus)
	api.POST("/bookings/:id/ratings", bookings.SubmitRating)
	api.POST("/bookings/:id/proof-of-delivery", driver, bookings.RequestProofOfDelivery)
	api.GET("/bookings/:id/proof-of-delivery", bookings.GetProofOfDelivery)
	api.PUT("/me/profile", profiles.UpsertMine)
	api.GET("/profiles/:id", profiles.GetByID)

	return &apiHarness{engine: engine, jwt: jwtService, db: db, hub: hub}
}

// user issues a token for a new user of role without creating a profile
func (h *apiHarness) user(t *testing.T, role shared.Role) testUser {
	t.Helper()
	id := uuid.New()
	token, _, err := h.jwt.GenerateAccessToken(auth.GenerateTokenInput{UserID: id, Role: role, Name: "Test " + role.String()})
	require.NoError(t, err)
	return testUser{id: id, role: role, token: token}
}

// registered issues a token and stores the user's profile through the API
func (h *apiHarness) registered(t *testing.T, role shared.Role, name string) testUser {
	t.Helper()
	u := h.user(t, role)
	rec := h.do(t, http.MethodPut, "/api/v1/me/profile", u, gin.H{"name": name, "phone": "+254700000001"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return u
}

func (h *apiHarness) do(t *testing.T, method, path string, u testUser, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case rawBody:
		reader = strings.NewReader(string(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a success envelope into T
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) APIResponse[T] {
	t.Helper()
	var resp APIResponse[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func errorInfo(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	resp := decode[json.RawMessage](t, rec)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error, rec.Body.String())
	return *resp.Error
}

func loadPayload() gin.H {
	return gin.H{
		"title":       "Maize to Mombasa",
		"cargo_type":  "grain",
		"pickup":      gin.H{"address": "Industrial Area", "city": "Nairobi"},
		"delivery":    gin.H{"address": "Kilindini", "city": "Mombasa"},
		"pickup_date": testNow.Add(48 * time.Hour).Format(time.RFC3339),
		"weight_kg":   "8000",
		"budget":      "10000",
	}
}

func bidPayload(amount string) gin.H {
	return gin.H{
		"amount":                 amount,
		"proposed_pickup_date":   testNow.Add(48 * time.Hour).Format(time.RFC3339),
		"proposed_delivery_date": testNow.Add(72 * time.Hour).Format(time.RFC3339),
		"vehicle":                gin.H{"type": "medium_truck", "plate_number": "kda 123x", "capacity_kg": "10000"},
		"additional_services":    []string{"loading"},
		"payment_terms":          "on_delivery",
	}
}

func (h *apiHarness) postLoad(t *testing.T, owner testUser) marketplaceapp.LoadResponse {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/loads", owner, loadPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[marketplaceapp.LoadResponse](t, rec).Data
}

func (h *apiHarness) submitBid(t *testing.T, driver testUser, loadID uuid.UUID, amount string) marketplaceapp.BidResponse {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/loads/"+loadID.String()+"/bids", driver, bidPayload(amount))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[marketplaceapp.BidResponse](t, rec).Data
}

func (h *apiHarness) accept(t *testing.T, owner testUser, bidID uuid.UUID) marketplaceapp.AcceptBidResult {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/bids/"+bidID.String()+"/accept", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[marketplaceapp.AcceptBidResult](t, rec).Data
}

func (h *apiHarness) advance(t *testing.T, u testUser, bookingID uuid.UUID, statuses ...marketplace.BookingStatus) marketplaceapp.BookingResponse {
	t.Helper()
	var last marketplaceapp.BookingResponse
	for _, s := range statuses {
		rec := h.do(t, http.MethodPatch, "/api/v1/bookings/"+bookingID.String()+"/status", u, gin.H{"status": s})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		last = decode[marketplaceapp.BookingResponse](t, rec).Data
	}
	return last
}
