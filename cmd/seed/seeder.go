package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	profileapp "github.com/freightmarket/backend/internal/application/profile"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	cargoTypes   = []string{"general", "perishables", "electronics", "building materials", "livestock feed", "textiles"}
	vehicleTypes = []string{"van", "light_truck", "medium_truck", "heavy_truck", "trailer", "refrigerated", "flatbed"}
	paymentTerms = []string{"on_delivery", "upfront", "net_7", "net_30"}
)

// SeedOptions controls how much demo data is generated
type SeedOptions struct {
	Owners      int
	Drivers     int
	Loads       int
	BidsPerLoad int
	Seed        uint64
	Currency    string
}

// SeededUser is a demo account with a ready-to-use access token
type SeededUser struct {
	Actor     shared.Actor
	Name      string
	Token     string
	ExpiresAt time.Time
}

// SeedResult summarizes a run
type SeedResult struct {
	Users []SeededUser
	Loads []uuid.UUID
	Bids  int
}

// Seeder fills an empty marketplace through the application services so
// every invariant and event applies to demo data too.
type Seeder struct {
	profiles *profileapp.ProfileService
	loads    *marketplaceapp.LoadService
	bids     *marketplaceapp.BidService
	tokens   *auth.JWTService
	logger   *zap.Logger
	now      func() time.Time
}

// NewSeeder creates a Seeder
func NewSeeder(
	profiles *profileapp.ProfileService,
	loads *marketplaceapp.LoadService,
	bids *marketplaceapp.BidService,
	tokens *auth.JWTService,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		profiles: profiles,
		loads:    loads,
		bids:     bids,
		tokens:   tokens,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run creates owners and drivers, posts loads for the owners and lets
// drivers bid on them. Bids per load are capped at the number of drivers.
func (s *Seeder) Run(ctx context.Context, opts SeedOptions) (*SeedResult, error) {
	faker := gofakeit.New(opts.Seed)
	result := &SeedResult{}

	owners, err := s.createUsers(ctx, faker, shared.RoleCargoOwner, opts.Owners)
	if err != nil {
		return nil, err
	}
	drivers, err := s.createUsers(ctx, faker, shared.RoleDriver, opts.Drivers)
	if err != nil {
		return nil, err
	}
	result.Users = append(owners, drivers...)
	if len(owners) == 0 {
		return result, nil
	}

	today := s.now().Truncate(24 * time.Hour)
	for i := 0; i < opts.Loads; i++ {
		owner := owners[i%len(owners)]
		pickup := today.AddDate(0, 0, faker.Number(1, 14))
		deadline := pickup.AddDate(0, 0, faker.Number(1, 5))
		budget := decimal.NewFromInt(int64(faker.Number(20, 400) * 500))

		load, err := s.loads.CreateLoad(ctx, owner.Actor, marketplaceapp.CreateLoadRequest{
			Title:            fmt.Sprintf("%s to %s", faker.City(), faker.City()),
			Description:      faker.Sentence(12),
			CargoType:        faker.RandomString(cargoTypes),
			Pickup:           s.location(faker),
			Delivery:         s.location(faker),
			PickupDate:       pickup,
			DeliveryDeadline: &deadline,
			WeightKg:         decimal.NewFromInt(int64(faker.Number(200, 28000))),
			Budget:           budget,
			Currency:         opts.Currency,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create load %d: %w", i+1, err)
		}
		result.Loads = append(result.Loads, load.ID)

		n := min(opts.BidsPerLoad, len(drivers))
		start := faker.Number(0, max(len(drivers)-1, 0))
		for j := 0; j < n; j++ {
			driver := drivers[(start+j)%len(drivers)]
			if _, err := s.bids.SubmitBid(ctx, driver.Actor, load.ID, s.bid(faker, budget, pickup, deadline, opts.Currency)); err != nil {
				return nil, fmt.Errorf("failed to submit bid on load %s: %w", load.ID, err)
			}
			result.Bids++
		}
	}

	s.logger.Info("Seed complete",
		zap.Int("users", len(result.Users)),
		zap.Int("loads", len(result.Loads)),
		zap.Int("bids", result.Bids),
	)
	return result, nil
}

func (s *Seeder) createUsers(ctx context.Context, faker *gofakeit.Faker, role shared.Role, count int) ([]SeededUser, error) {
	users := make([]SeededUser, 0, count)
	for i := 0; i < count; i++ {
		actor := shared.NewActor(uuid.New(), role)
		name := faker.Name()
		if role == shared.RoleCargoOwner {
			name = faker.Company()
		}
		if _, err := s.profiles.UpsertMyProfile(ctx, actor, profileapp.UpsertProfileRequest{
			Name:  name,
			Phone: faker.Phone(),
			Email: faker.Email(),
		}); err != nil {
			return nil, fmt.Errorf("failed to create %s profile: %w", role, err)
		}
		token, expiresAt, err := s.tokens.GenerateAccessToken(auth.GenerateTokenInput{
			UserID: actor.ID,
			Role:   role,
			Name:   name,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to sign token: %w", err)
		}
		users = append(users, SeededUser{Actor: actor, Name: name, Token: token, ExpiresAt: expiresAt})
	}
	return users, nil
}

func (s *Seeder) location(faker *gofakeit.Faker) marketplaceapp.LocationInput {
	lat, lon := faker.Latitude(), faker.Longitude()
	return marketplaceapp.LocationInput{
		Address:   faker.Street(),
		City:      faker.City(),
		Region:    faker.State(),
		Latitude:  &lat,
		Longitude: &lon,
	}
}

// bid quotes between 70% and 110% of budget
func (s *Seeder) bid(faker *gofakeit.Faker, budget decimal.Decimal, pickup, deadline time.Time, currency string) marketplaceapp.SubmitBidRequest {
	amount := budget.Mul(decimal.NewFromInt(int64(faker.Number(70, 110)))).Div(decimal.NewFromInt(100)).Round(0)
	fuel := amount.Mul(decimal.NewFromFloat(0.3)).Round(0)
	return marketplaceapp.SubmitBidRequest{
		Amount:               amount,
		Currency:             currency,
		ProposedPickupDate:   pickup,
		ProposedDeliveryDate: deadline,
		Vehicle: marketplaceapp.VehicleInput{
			Type:        faker.RandomString(vehicleTypes),
			PlateNumber: fmt.Sprintf("K%s %03d%s", faker.LetterN(2), faker.Number(0, 999), faker.LetterN(1)),
			CapacityKg:  decimal.NewFromInt(int64(faker.Number(1, 30) * 1000)),
		},
		Pricing: &marketplaceapp.PricingInput{
			BaseRate: amount.Sub(fuel),
			FuelCost: fuel,
		},
		PaymentTerms: faker.RandomString(paymentTerms),
		Message:      faker.Sentence(8),
	}
}
