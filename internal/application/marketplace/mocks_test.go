package marketplace

import (
	"context"
	"sync"
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// ============================================
// Repository Mocks
// ============================================

type MockLoadRepository struct {
	mock.Mock
}

func (m *MockLoadRepository) FindByID(ctx context.Context, id uuid.UUID) (*marketplace.Load, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.Load), args.Error(1)
}

func (m *MockLoadRepository) FindAll(ctx context.Context, filter shared.Filter) ([]marketplace.Load, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]marketplace.Load), args.Get(1).(int64), args.Error(2)
}

func (m *MockLoadRepository) Create(ctx context.Context, load *marketplace.Load) error {
	args := m.Called(ctx, load)
	return args.Error(0)
}

func (m *MockLoadRepository) SaveWithLock(ctx context.Context, load *marketplace.Load) error {
	args := m.Called(ctx, load)
	return args.Error(0)
}

type MockBidRepository struct {
	mock.Mock
}

func (m *MockBidRepository) FindByID(ctx context.Context, id uuid.UUID) (*marketplace.Bid, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.Bid), args.Error(1)
}

func (m *MockBidRepository) FindByLoad(ctx context.Context, loadID uuid.UUID, statuses ...marketplace.BidStatus) ([]marketplace.Bid, error) {
	args := m.Called(ctx, loadID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketplace.Bid), args.Error(1)
}

func (m *MockBidRepository) FindByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) ([]marketplace.Bid, int64, error) {
	args := m.Called(ctx, driverID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]marketplace.Bid), args.Get(1).(int64), args.Error(2)
}

func (m *MockBidRepository) ExistsActive(ctx context.Context, loadID, driverID uuid.UUID) (bool, error) {
	args := m.Called(ctx, loadID, driverID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBidRepository) SaveWithLock(ctx context.Context, bid *marketplace.Bid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*marketplace.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindByBid(ctx context.Context, bidID uuid.UUID) (*marketplace.Booking, error) {
	args := m.Called(ctx, bidID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindByParty(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]marketplace.Booking, int64, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]marketplace.Booking), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookingRepository) CountLiveByLoad(ctx context.Context, loadID, excludeID uuid.UUID) (int64, error) {
	args := m.Called(ctx, loadID, excludeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingRepository) SaveWithLock(ctx context.Context, booking *marketplace.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) RatingSummary(ctx context.Context, userID uuid.UUID, role shared.Role) (marketplace.RatingSummary, error) {
	args := m.Called(ctx, userID, role)
	return args.Get(0).(marketplace.RatingSummary), args.Error(1)
}

// ============================================
// Unit of Work Mocks
// ============================================

type MockAllocationStore struct {
	mock.Mock
}

func (m *MockAllocationStore) CommitSubmission(ctx context.Context, bid *marketplace.Bid, load *marketplace.Load) error {
	args := m.Called(ctx, bid, load)
	return args.Error(0)
}

func (m *MockAllocationStore) CommitAcceptance(ctx context.Context, a marketplace.Acceptance) (marketplace.AcceptanceOutcome, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(marketplace.AcceptanceOutcome), args.Error(1)
}

func (m *MockAllocationStore) CommitCancellation(ctx context.Context, c marketplace.Cancellation) ([]marketplace.Bid, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketplace.Bid), args.Error(1)
}

type MockBookingStore struct {
	mock.Mock
}

func (m *MockBookingStore) CommitTransition(ctx context.Context, change marketplace.BookingChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

// ============================================
// Collaborator Mocks
// ============================================

type MockProfileLookup struct {
	mock.Mock
}

func (m *MockProfileLookup) GetParty(ctx context.Context, id uuid.UUID) (*marketplace.PartyProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.PartyProfile), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyNewBid(ctx context.Context, ownerID uuid.UUID, bid BidSummary, load LoadSummary) error {
	return m.Called(ctx, ownerID, bid, load).Error(0)
}

func (m *MockNotifier) NotifyBidAccepted(ctx context.Context, driverID uuid.UUID, bid BidSummary, load LoadSummary) error {
	return m.Called(ctx, driverID, bid, load).Error(0)
}

func (m *MockNotifier) NotifyLoadAssigned(ctx context.Context, ownerID uuid.UUID, bid BidSummary, load LoadSummary) error {
	return m.Called(ctx, ownerID, bid, load).Error(0)
}

func (m *MockNotifier) NotifyBidRejected(ctx context.Context, driverID uuid.UUID, bid BidSummary, load LoadSummary, reason string) error {
	return m.Called(ctx, driverID, bid, load, reason).Error(0)
}

func (m *MockNotifier) NotifyCounterOffer(ctx context.Context, driverID uuid.UUID, bid BidSummary, load LoadSummary) error {
	return m.Called(ctx, driverID, bid, load).Error(0)
}

func (m *MockNotifier) NotifyBookingStatus(ctx context.Context, userID uuid.UUID, booking BookingSummary) error {
	return m.Called(ctx, userID, booking).Error(0)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// recordingPublisher captures published events in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	hook   func(shared.DomainEvent)
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	p.events = append(p.events, events...)
	p.mu.Unlock()
	if p.hook != nil {
		for _, e := range events {
			p.hook(e)
		}
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// ============================================
// Fixtures
// ============================================

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestProfile(id uuid.UUID, role shared.Role, name string) *marketplace.PartyProfile {
	return &marketplace.PartyProfile{
		ID:          id,
		Role:        role,
		Name:        name,
		Phone:       "+254700000000",
		Rating:      decimal.NewFromFloat(4.5),
		RatingCount: 10,
		Verified:    true,
		Available:   role == shared.RoleDriver,
	}
}

func newTestLoad(ownerID uuid.UUID) *marketplace.Load {
	load, err := marketplace.NewLoad(ownerID, marketplace.LoadDetails{
		Title:      "Maize to Mombasa",
		Pickup:     marketplace.Location{City: "Nairobi"},
		Delivery:   marketplace.Location{City: "Mombasa"},
		PickupDate: testNow.Add(48 * time.Hour),
		WeightKg:   decimal.NewFromInt(4000),
		Budget:     decimal.NewFromInt(10000),
	}, testNow)
	if err != nil {
		panic(err)
	}
	load.ClearDomainEvents()
	return load
}

func validBidRequest(amount int64) SubmitBidRequest {
	return SubmitBidRequest{
		Amount:               decimal.NewFromInt(amount),
		ProposedPickupDate:   testNow.Add(48 * time.Hour),
		ProposedDeliveryDate: testNow.Add(72 * time.Hour),
		Vehicle:              VehicleInput{Type: "medium_truck", PlateNumber: "kda 123x", CapacityKg: decimal.NewFromInt(5000)},
		PaymentTerms:         "cod",
		Message:              "Available immediately",
	}
}

func newTestBid(load *marketplace.Load, driverID uuid.UUID, amount int64) *marketplace.Bid {
	snapshot := marketplace.NewDriverSnapshot(newTestProfile(driverID, shared.RoleDriver, "Driver "+driverID.String()[:4]), testNow)
	bid, err := marketplace.NewBid(load, snapshot, marketplace.BidTerms{
		Amount:               decimal.NewFromInt(amount),
		ProposedPickupDate:   testNow.Add(48 * time.Hour),
		ProposedDeliveryDate: testNow.Add(72 * time.Hour),
		Vehicle:              marketplace.VehicleDetails{Type: marketplace.VehicleMediumTruck},
		PaymentTerms:         marketplace.PaymentOnDelivery,
	}, testNow, 0)
	if err != nil {
		panic(err)
	}
	bid.ClearDomainEvents()
	return bid
}

func ownerActor(id uuid.UUID) shared.Actor  { return shared.NewActor(id, shared.RoleCargoOwner) }
func driverActor(id uuid.UUID) shared.Actor { return shared.NewActor(id, shared.RoleDriver) }
