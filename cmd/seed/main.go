package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	profileapp "github.com/freightmarket/backend/internal/application/profile"
	"github.com/freightmarket/backend/internal/infrastructure/auth"
	"github.com/freightmarket/backend/internal/infrastructure/config"
	"github.com/freightmarket/backend/internal/infrastructure/event"
	"github.com/freightmarket/backend/internal/infrastructure/logger"
	"github.com/freightmarket/backend/internal/infrastructure/notification"
	"github.com/freightmarket/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var opts SeedOptions
	flag.IntVar(&opts.Owners, "owners", 3, "Number of cargo owners")
	flag.IntVar(&opts.Drivers, "drivers", 6, "Number of drivers")
	flag.IntVar(&opts.Loads, "loads", 10, "Number of loads to post")
	flag.IntVar(&opts.BidsPerLoad, "bids", 3, "Bids per load")
	flag.Uint64Var(&opts.Seed, "seed", 0, "Faker seed (0 picks a random one)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	opts.Currency = cfg.Marketplace.DefaultCurrency

	db, err := persistence.Open(context.Background(), &cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.GormLevel)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	loadRepo := persistence.NewGormLoadRepository(db.DB)
	bidRepo := persistence.NewGormBidRepository(db.DB)
	profileRepo := persistence.NewGormProfileRepository(db.DB)
	allocationStore := persistence.NewGormAllocationStore(db.DB)

	marketCfg := marketplaceapp.Config{
		BidExpiry:          cfg.Marketplace.BidExpiry,
		CounterOfferExpiry: cfg.Marketplace.CounterOfferExpiry,
		DefaultCurrency:    cfg.Marketplace.DefaultCurrency,
		UploadURLExpiry:    cfg.Marketplace.UploadURLExpiry,
	}
	loadService := marketplaceapp.NewLoadService(loadRepo, allocationStore, log)
	bidService := marketplaceapp.NewBidService(loadRepo, bidRepo, allocationStore, profileRepo, marketCfg, log)

	// No subscribers and no websocket clients here; events and notifications are logged
	bus := event.NewInMemoryEventBus(log)
	notifier := notification.NewNotifier(notification.NewLogSink(log))
	loadService.SetEventPublisher(bus)
	bidService.SetEventPublisher(bus)
	bidService.SetNotifier(notifier)

	seeder := NewSeeder(
		profileapp.NewProfileService(profileRepo, log),
		loadService,
		bidService,
		auth.NewJWTService(cfg.JWT),
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	result, err := seeder.Run(ctx, opts)
	if err != nil {
		log.Fatal("Seed failed", zap.Error(err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tUSER ID\tNAME\tTOKEN")
	for _, u := range result.Users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Actor.Role, u.Actor.ID, u.Name, u.Token)
	}
	_ = w.Flush()
}
