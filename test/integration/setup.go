package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/adapters/broadcast"
	handler "github.com/livepoll/api/internal/adapters/handler/http"
	repo "github.com/livepoll/api/internal/adapters/repository/postgres"
	"github.com/livepoll/api/internal/core/ports"
	"github.com/livepoll/api/internal/core/services"
)

const testJWTSecret = "test-secret"

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	Clock       *clock.Mock
	Hub         *broadcast.Hub
	Lifecycle   ports.LifecycleService
	SummarySvc  ports.SummaryService
	DBContainer testcontainers.Container
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx := context.Background()

	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	require.NoError(t, applyMigrations(db))

	logger := zap.NewNop()
	mockClock := clock.NewMock()
	mockClock.Set(time.Now().UTC())

	pollRepo := repo.NewPollRepository(db)
	voteLedger := repo.NewVoteRepository(db)
	notifRepo := repo.NewNotificationRepository(db)
	resultRepo := repo.NewPollResultRepository(db)

	hub := broadcast.NewHub(16, logger)

	pollSvc := services.NewPollService(pollRepo, hub, mockClock, logger)
	voteSvc := services.NewVoteService(pollRepo, voteLedger, hub, mockClock, 5*time.Second, logger)
	notifSvc := services.NewNotificationService(voteLedger, notifRepo, mockClock, logger)
	lifecycle := services.NewLifecycleService(
		pollRepo, notifSvc, hub, mockClock,
		time.Minute, 5*time.Second, logger,
	)
	summarySvc := services.NewSummaryService(pollRepo, resultRepo, logger)

	auth := handler.NewAuthMiddleware(testJWTSecret)
	router := handler.NewHandler(
		handler.NewPollHandler(pollSvc, lifecycle, resultRepo),
		handler.NewVoteHandler(voteSvc),
		handler.NewNotificationHandler(notifRepo),
		handler.NewWSHandler(hub, logger),
		auth,
	)
	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		Clock:       mockClock,
		Hub:         hub,
		Lifecycle:   lifecycle,
		SummarySvc:  summarySvc,
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "../../internal/adapters/repository/postgres/migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// createUserAndToken inserts a user row and returns a signed session token
// plus the user's id.
func (app *TestApp) createUserAndToken(t *testing.T) (uuid.UUID, string) {
	t.Helper()

	userID := uuid.New()
	email := fmt.Sprintf("user-%s@example.com", userID)
	name := fmt.Sprintf("User %s", userID)
	_, err := app.DB.Exec("INSERT INTO users (id, email, name) VALUES ($1, $2, $3)", userID, email, name)
	require.NoError(t, err)

	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return userID, signedToken
}
