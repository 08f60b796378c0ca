package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/profile"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
}

// openMockGorm wraps a sqlmock connection in a postgres-dialect GORM DB
func openMockGorm(t *testing.T, mockDB *sql.DB) *gorm.DB {
	t.Helper()
	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, testGormConfig())
	require.NoError(t, err)
	return gormDB
}

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	return &Database{DB: openMockGorm(t, mockDB)}, mock, mockDB
}

// newTestDB opens a private in-memory SQLite database with the schema migrated
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	return openSQLite(t, dsn, 1)
}

func openSQLite(t *testing.T, dsn string, maxConns int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), testGormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// ============================================
// Marketplace fixture
// ============================================

type marketFixture struct {
	db           *gorm.DB
	loads        *GormLoadRepository
	bids         *GormBidRepository
	bookings     *GormBookingRepository
	profiles     *GormProfileRepository
	allocation   *GormAllocationStore
	bookingStore *GormBookingStore
}

func newMarketFixtureWithDB(db *gorm.DB) *marketFixture {
	return &marketFixture{
		db:           db,
		loads:        NewGormLoadRepository(db),
		bids:         NewGormBidRepository(db),
		bookings:     NewGormBookingRepository(db),
		profiles:     NewGormProfileRepository(db),
		allocation:   NewGormAllocationStore(db),
		bookingStore: NewGormBookingStore(db),
	}
}

func newMarketFixture(t *testing.T) *marketFixture {
	return newMarketFixtureWithDB(newTestDB(t))
}

func (f *marketFixture) seedProfile(t *testing.T, role shared.Role, name string) *profile.Profile {
	t.Helper()
	p, err := profile.NewProfile(uuid.New(), profile.Details{Role: role, Name: name, Phone: "+254700000000"}, testNow)
	require.NoError(t, err)
	require.NoError(t, f.profiles.Save(context.Background(), p))
	return p
}

func (f *marketFixture) postLoad(t *testing.T, ownerID uuid.UUID) *marketplace.Load {
	t.Helper()
	load, err := marketplace.NewLoad(ownerID, marketplace.LoadDetails{
		Title:      "Maize to Mombasa",
		CargoType:  "grain",
		Pickup:     marketplace.Location{Address: "Industrial Area", City: "Nairobi"},
		Delivery:   marketplace.Location{Address: "Kilindini", City: "Mombasa"},
		PickupDate: testNow.Add(48 * time.Hour),
		WeightKg:   decimal.NewFromInt(8000),
		Budget:     decimal.NewFromInt(10000),
	}, testNow)
	require.NoError(t, err)
	require.NoError(t, f.loads.Create(context.Background(), load))
	return load
}

func bidTerms(amount int64) marketplace.BidTerms {
	return marketplace.BidTerms{
		Amount:               decimal.NewFromInt(amount),
		ProposedPickupDate:   testNow.Add(48 * time.Hour),
		ProposedDeliveryDate: testNow.Add(72 * time.Hour),
		Vehicle: marketplace.VehicleDetails{
			Type:        marketplace.VehicleMediumTruck,
			PlateNumber: "KDA 123X",
			CapacityKg:  decimal.NewFromInt(10000),
		},
		AdditionalServices: []marketplace.AdditionalService{marketplace.ServiceLoading},
		PaymentTerms:       marketplace.PaymentOnDelivery,
	}
}

// submitBid reloads the load and commits a new bid from driver against it
func (f *marketFixture) submitBid(t *testing.T, loadID uuid.UUID, driver *profile.Profile, amount int64) *marketplace.Bid {
	t.Helper()
	ctx := context.Background()
	load, err := f.loads.FindByID(ctx, loadID)
	require.NoError(t, err)
	party, err := f.profiles.GetParty(ctx, driver.ID)
	require.NoError(t, err)

	bid, err := marketplace.NewBid(load, marketplace.NewDriverSnapshot(party, testNow), bidTerms(amount), testNow, 0)
	require.NoError(t, err)
	require.NoError(t, load.RegisterBid(testNow))
	require.NoError(t, f.allocation.CommitSubmission(ctx, bid, load))
	return bid
}

// prepareAcceptance reloads the bid, load and driver and applies the domain
// side of an acceptance, ready to commit
func (f *marketFixture) prepareAcceptance(t *testing.T, bidID, ownerID uuid.UUID) marketplace.Acceptance {
	t.Helper()
	ctx := context.Background()
	bid, err := f.bids.FindByID(ctx, bidID)
	require.NoError(t, err)
	load, err := f.loads.FindByID(ctx, bid.LoadID)
	require.NoError(t, err)
	party, err := f.profiles.GetParty(ctx, bid.DriverID)
	require.NoError(t, err)

	at := testNow.Add(time.Hour)
	require.NoError(t, bid.Accept(ownerID, at))
	require.NoError(t, load.AssignDriver(bid, ownerID, at))
	booking := marketplace.NewBookingFromAcceptance(bid, load, marketplace.NewDriverSnapshot(party, at), ownerID, at)
	return marketplace.Acceptance{Bid: bid, Load: load, Booking: booking, ActorID: ownerID, At: at}
}

func (f *marketFixture) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
