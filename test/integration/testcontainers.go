package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/scanstore/db/migrations"
	"github.com/doodlesbykumbi/scanstore/pkg/config"
	"github.com/doodlesbykumbi/scanstore/pkg/server"
	"github.com/doodlesbykumbi/scanstore/pkg/server/endpoints"
	gormstore "github.com/doodlesbykumbi/scanstore/pkg/store/gorm"
	"github.com/doodlesbykumbi/scanstore/pkg/worker"
)

// jwtSecret signs the bearer tokens of every scenario.
const jwtSecret = "integration-secret-0123456789abcdef"

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB            *gorm.DB
	RawDB         *sql.DB
	Container     testcontainers.Container
	ServerURL     string
	DatabaseURL   string
	JWTSecret     []byte
	HTTPClient    *http.Client
	Cancel        context.CancelFunc
	ServerProcess *exec.Cmd
	InlineServer  *server.Server
	Pool          *worker.Pool
}

// NewTestContext creates a new test context with PostgreSQL testcontainer.
// Modes:
//   - Binary mode (default): Set SCANSTORE_BINARY to the path of the scanctl binary
//   - Inline mode: Set SCANSTORE_INLINE=1 to run the server in-process (no binary needed)
func NewTestContext(ctx context.Context) (*TestContext, error) {
	inlineMode := os.Getenv("SCANSTORE_INLINE") == "1"
	binaryPath := os.Getenv("SCANSTORE_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("Either SCANSTORE_BINARY or SCANSTORE_INLINE=1 is required.\n\nBinary mode:\n  go build -o scanctl ./cmd/scanctl\n  INTEGRATION_TEST=1 SCANSTORE_BINARY=$(pwd)/scanctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 SCANSTORE_INLINE=1 go test -v ./test/integration/...")
	}

	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("SCANSTORE_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("scanstore_test"),
		tcpostgres.WithUsername("scanstore"),
		tcpostgres.WithPassword("scanstore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rawDB, err := db.DB()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get raw db: %w", err)
	}

	if err := runMigrations(rawDB); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	serverPort, err := freePort()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}
	serverURL := fmt.Sprintf("http://127.0.0.1:%s", serverPort)

	tc := &TestContext{
		DB:          db,
		RawDB:       rawDB,
		Container:   pgContainer,
		ServerURL:   serverURL,
		DatabaseURL: connStr,
		JWTSecret:   []byte(jwtSecret),
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}

	if inlineMode {
		err = tc.startInlineServer(db, serverPort)
	} else {
		err = tc.startBinary(binaryPath, serverPort)
	}
	if err != nil {
		tc.Close(ctx)
		return nil, err
	}

	if err := waitForServer(serverURL, 30*time.Second); err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return tc, nil
}

// startInlineServer starts the server and its workers in-process
func (tc *TestContext) startInlineServer(db *gorm.DB, port string) error {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := config.Default()
	cfg.JWTSecret = jwtSecret
	cfg.DatabaseURL = tc.DatabaseURL

	stores := gormstore.NewStores(db)
	pool := worker.NewPool(2, 64, nil)
	worker.NewJobs(stores, cfg, pool, nil, nil).Register(pool)
	pool.Start(ctx)

	s := server.NewServer(stores, cfg, pool, "127.0.0.1", port, nil)
	endpoints.RegisterAll(s)

	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		cancel()
		pool.Stop()
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}

	go func() {
		_ = s.StartWithListener(listener)
	}()

	tc.InlineServer = s
	tc.Pool = pool
	tc.Cancel = func() {
		_ = s.Shutdown(context.Background())
		cancel()
		pool.Stop()
	}
	return nil
}

// startBinary starts the scanctl server binary
func (tc *TestContext) startBinary(binaryPath, port string) error {
	ctx, cancel := context.WithCancel(context.Background())

	// Use --no-migrate since we already ran migrations in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", port)
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+tc.DatabaseURL,
		"SCANSTORE_JWT_SECRET="+jwtSecret,
		"SCANSTORE_WORKER_COUNT=2",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start binary: %w", err)
	}

	tc.ServerProcess = cmd
	tc.Cancel = cancel
	return nil
}

func freePort() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to allocate a port: %w", err)
	}
	defer func() { _ = l.Close() }()
	_, port, err := net.SplitHostPort(l.Addr().String())
	return port, err
}

// waitForServer polls the server until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Cancel != nil {
		tc.Cancel()
	}
	if tc.ServerProcess != nil && tc.ServerProcess.Process != nil {
		_ = tc.ServerProcess.Process.Kill()
		_ = tc.ServerProcess.Wait()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// fixturePath resolves a report fixture shipped with the parser tests.
func fixturePath(name string) string {
	return filepath.Join("..", "..", "pkg", "report", "parser", "testdata", name)
}

// runMigrations applies the embedded schema migrations
func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: "go_schema_migrations"})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
