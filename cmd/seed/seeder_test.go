package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	profileapp "github.com/freightmarket/backend/internal/application/profile"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/auth"
	"github.com/freightmarket/backend/internal/infrastructure/config"
	"github.com/freightmarket/backend/internal/infrastructure/persistence"
	"github.com/freightmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSeeder(t *testing.T) (*Seeder, *gorm.DB, *auth.JWTService) {
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

	log := zap.NewNop()
	loadRepo := persistence.NewGormLoadRepository(db)
	bidRepo := persistence.NewGormBidRepository(db)
	profileRepo := persistence.NewGormProfileRepository(db)
	store := persistence.NewGormAllocationStore(db)
	cfg := marketplaceapp.DefaultConfig()

	tokens := auth.NewJWTService(config.JWTConfig{
		Secret:                "seed-test-secret-0123456789abcdef",
		Issuer:                "freight-marketplace",
		AccessTokenExpiration: time.Hour,
	})
	s := NewSeeder(
		profileapp.NewProfileService(profileRepo, log),
		marketplaceapp.NewLoadService(loadRepo, store, log),
		marketplaceapp.NewBidService(loadRepo, bidRepo, store, profileRepo, cfg, log),
		tokens,
		log,
	)
	return s, db, tokens
}

func TestSeeder_Run(t *testing.T) {
	s, db, tokens := newSeeder(t)

	result, err := s.Run(context.Background(), SeedOptions{
		Owners:      2,
		Drivers:     3,
		Loads:       4,
		BidsPerLoad: 5,
		Seed:        42,
		Currency:    "KES",
	})
	require.NoError(t, err)

	assert.Len(t, result.Users, 5)
	assert.Len(t, result.Loads, 4)
	assert.Equal(t, 12, result.Bids, "bids per load are capped at the driver count")

	var loads, bids, profiles int64
	require.NoError(t, db.Model(&models.LoadModel{}).Count(&loads).Error)
	require.NoError(t, db.Model(&models.BidModel{}).Count(&bids).Error)
	require.NoError(t, db.Model(&models.ProfileModel{}).Count(&profiles).Error)
	assert.Equal(t, int64(4), loads)
	assert.Equal(t, int64(12), bids)
	assert.Equal(t, int64(5), profiles)

	for _, u := range result.Users {
		claims, err := tokens.ValidateAccessToken(u.Token)
		require.NoError(t, err)
		actor, err := claims.Actor()
		require.NoError(t, err)
		assert.Equal(t, u.Actor, actor)
	}
}

func TestSeeder_NoOwners(t *testing.T) {
	s, _, _ := newSeeder(t)

	result, err := s.Run(context.Background(), SeedOptions{Drivers: 2, Loads: 3, Currency: "KES"})
	require.NoError(t, err)
	assert.Len(t, result.Users, 2)
	assert.Empty(t, result.Loads)
	for _, u := range result.Users {
		assert.Equal(t, shared.RoleDriver, u.Actor.Role)
	}
}
