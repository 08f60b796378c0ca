// Package integration runs the marketplace services against a real
// PostgreSQL started with testcontainers. Tests skip in -short mode.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/freightmarket/backend/internal/infrastructure/config"
	"github.com/freightmarket/backend/internal/infrastructure/migration"
	"github.com/freightmarket/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	pgUser     = "postgres"
	pgPassword = "postgres"
	pgAdminDB  = "postgres"
)

// One container serves the whole package; every test gets its own freshly
// migrated database inside it.
var server struct {
	once      sync.Once
	container *tcpostgres.PostgresContainer
	base      config.DatabaseConfig
	err       error
	seq       atomic.Int64
}

// TestDB is a migrated database owned by a single test
type TestDB struct {
	DB   *gorm.DB
	Name string
}

func startServer() {
	ctx := context.Background()
	server.container, server.err = tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(pgAdminDB),
		tcpostgres.WithUsername(pgUser),
		tcpostgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if server.err != nil {
		return
	}
	host, err := server.container.Host(ctx)
	if err != nil {
		server.err = err
		return
	}
	port, err := server.container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		server.err = err
		return
	}
	server.base = config.DatabaseConfig{
		Host:         host,
		Port:         port.Int(),
		User:         pgUser,
		Password:     pgPassword,
		DBName:       pgAdminDB,
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}
}

// stopServer is called from TestMain once every test has finished.
func stopServer() {
	if server.container != nil {
		_ = server.container.Terminate(context.Background())
	}
}

// NewTestDB creates an empty database, applies migrations/ and drops it
// again when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test needs docker")
	}
	server.once.Do(startServer)
	require.NoError(t, server.err, "start postgres container")

	ctx := context.Background()
	admin, err := persistence.Open(ctx, &server.base, nil)
	require.NoError(t, err)
	defer admin.Close()

	name := fmt.Sprintf("freight_test_%d", server.seq.Add(1))
	require.NoError(t, adminExec(admin, "CREATE DATABASE "+name))

	cfg := server.base
	cfg.DBName = name
	var gormLog logger.Interface
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormLog = logger.Default.LogMode(logger.Info)
	}
	db, err := persistence.Open(ctx, &cfg, gormLog)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
		if admin, err := persistence.Open(context.Background(), &server.base, nil); err == nil {
			_ = adminExec(admin, "DROP DATABASE IF EXISTS "+name)
			_ = admin.Close()
		}
	})

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, migrationsDir(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up(), "apply migrations to %s", name)

	return &TestDB{DB: db.DB, Name: name}
}

// adminExec bypasses gorm's statement cache; CREATE DATABASE cannot be prepared.
func adminExec(admin *persistence.Database, stmt string) error {
	sqlDB, err := admin.DB.DB()
	if err != nil {
		return err
	}
	_, err = sqlDB.Exec(stmt)
	return err
}

// migrationsDir walks up from this file to the repository's migrations/
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	for dir := filepath.Dir(file); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	t.Fatal("migrations directory not found")
	return ""
}
