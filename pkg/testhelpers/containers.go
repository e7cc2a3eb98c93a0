// Package testhelpers provides a shared, Docker-backed Postgres container
// for integration tests that need a real run ledger rather than a fake
// pgxpool.Pool. Skipped automatically under `go test -short`.
package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for golang-migrate
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/schema-intel/pkg/database"
)

// LedgerTestImage is a stock PostgreSQL image; the ledger schema is applied
// via the project's own migrations rather than a pre-baked image.
const LedgerTestImage = "postgres:16-alpine"

// TestLedgerDB holds a shared Postgres container with the run-ledger
// migrations applied, plus a ready-to-use pool.
type TestLedgerDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
}

var (
	sharedLedgerDB     *TestLedgerDB
	sharedLedgerDBOnce sync.Once
	sharedLedgerDBErr  error
)

// GetTestLedgerDB returns a shared Postgres container with pipeline_runs
// migrated in, reused across every test in the run.
func GetTestLedgerDB(t *testing.T) *TestLedgerDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode (requires Docker)")
	}

	sharedLedgerDBOnce.Do(func() {
		sharedLedgerDB, sharedLedgerDBErr = setupLedgerDB()
	})
	if sharedLedgerDBErr != nil {
		t.Fatalf("failed to set up ledger test database: %v", sharedLedgerDBErr)
	}
	return sharedLedgerDB
}

func setupLedgerDB() (*TestLedgerDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        LedgerTestImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "schemaintel_test",
			"POSTGRES_USER":     "schemaintel",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://schemaintel:test_password@%s:%s/schemaintel_test?sslmode=disable",
		host, port.Port())

	if err := runLedgerMigrations(connStr); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	return &TestLedgerDB{Container: container, Pool: pool, ConnStr: connStr}, nil
}

func runLedgerMigrations(connStr string) error {
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("open sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, migrationsPath()); err != nil {
		return fmt.Errorf("run ledger migrations: %w", err)
	}
	return nil
}

// migrationsPath resolves the repository's migrations/ directory relative to
// this source file, independent of the test's working directory.
func migrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// Neo4jTestImage is a stock Neo4j community image with auth disabled, used
// for integration tests of the queryable graph store.
const Neo4jTestImage = "neo4j:5-community"

// TestNeo4jDB holds a shared Neo4j container for graph store integration
// tests.
type TestNeo4jDB struct {
	Container testcontainers.Container
	URI       string
}

var (
	sharedNeo4jDB     *TestNeo4jDB
	sharedNeo4jDBOnce sync.Once
	sharedNeo4jDBErr  error
)

// GetTestNeo4jDB returns a shared Neo4j container, reused across every test
// in the run.
func GetTestNeo4jDB(t *testing.T) *TestNeo4jDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode (requires Docker)")
	}

	sharedNeo4jDBOnce.Do(func() {
		sharedNeo4jDB, sharedNeo4jDBErr = setupNeo4jDB()
	})
	if sharedNeo4jDBErr != nil {
		t.Fatalf("failed to set up neo4j test database: %v", sharedNeo4jDBErr)
	}
	return sharedNeo4jDB
}

func setupNeo4jDB() (*TestNeo4jDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        Neo4jTestImage,
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "none",
		},
		WaitingFor: wait.ForLog("Started.").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start neo4j container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "7687")
	if err != nil {
		return nil, fmt.Errorf("get container port: %w", err)
	}

	return &TestNeo4jDB{
		Container: container,
		URI:       fmt.Sprintf("bolt://%s:%s", host, port.Port()),
	}, nil
}
