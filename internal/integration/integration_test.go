package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"autoescola-portal/internal/app"
	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/infra/memory"
	"autoescola-portal/internal/infra/postgres"
	pgmigrations "autoescola-portal/internal/infra/postgres/migrations"
	infraredis "autoescola-portal/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestBankExamEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)
	pool, err := pgxpool.Connect(ctx, pgURL)
	require.NoError(t, err)
	defer pool.Close()
	store := postgres.NewStore(pool)
	seedPortal(t, ctx, store)

	redisClient, err := redisClientFromURL(redisURL)
	require.NoError(t, err)
	defer redisClient.Close()

	bank := infraredis.NewQuestionCache(redisClient, store, 5*time.Minute, nil)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewExamService(sessions, store, store, []app.Variant{
		app.BankVariant(bank, store, store, app.NewSeededSampler(7), nil, nil),
	}, nil, app.ExamOptions{}, nil, nil)

	snap, err := service.Open(ctx, "u1", app.VariantBank, domain.QuestionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 12, snap.Total)
	live, err := sessions.Live(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, live)

	_, err = service.Start(ctx, "u1")
	require.NoError(t, err)
	for i := 0; i < snap.Total; i++ {
		_, err = service.Answer(ctx, "u1", 0)
		require.NoError(t, err)
		_, err = service.Next(ctx, "u1")
		require.NoError(t, err)
	}
	res, err := service.Finish(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	require.NotEmpty(t, res.ID)

	history, err := service.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.ID, history[0].ID)
	assert.Equal(t, 12, history[0].CorrectAnswers)

	student, err := store.StudentByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, student.Points)

	questions, err := store.ListQuestions(ctx, domain.QuestionFilter{License: "B"})
	require.NoError(t, err)
	for _, q := range questions {
		assert.Equal(t, 1, q.Stats.TotalAnswers, q.ID)
		assert.Equal(t, float64(100), q.Stats.SuccessRate, q.ID)
	}

	service.Close(ctx, "u1")
	live, err = sessions.Live(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, live)
}

func TestBillingOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateSchema(t, ctx, pgURL)
	pool, err := pgxpool.Connect(ctx, pgURL)
	require.NoError(t, err)
	defer pool.Close()
	store := postgres.NewStore(pool)
	seedPortal(t, ctx, store)

	billing := app.NewBillingService(store, store, memory.NewReceiptStore("https://files.example.com"), 10*time.Millisecond, nil, nil)
	defer billing.Close()

	overview, err := billing.Overview(ctx, "u1", "", "amount")
	require.NoError(t, err)
	require.Len(t, overview.Payments, 2)
	assert.Equal(t, "p1", overview.Payments[0].ID)
	assert.True(t, overview.TotalPending.Equal(decimal.RequireFromString("770.50")))

	_, err = billing.Pay(ctx, "u1", "p2", "pix")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		p, err := store.GetPayment(ctx, "p2")
		return err == nil && p.Status == domain.PaymentApproved && p.PaidAt != nil
	}, 5*time.Second, 20*time.Millisecond)

	receipt, err := billing.Receipt(ctx, "u1", "p2")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/receipts/p2.txt", receipt.Receipt)
}

func seedPortal(t *testing.T, ctx context.Context, store *postgres.Store) {
	t.Helper()
	require.NoError(t, store.UpsertUser(ctx, domain.User{ID: "u1", Email: "ana@example.com", Name: "Ana", Role: "student", PasswordHash: []byte("x")}))
	require.NoError(t, store.UpsertStudent(ctx, domain.Student{ID: "s1", UserID: "u1", Name: "Ana", Category: "B", Status: "active"}))
	for i := 1; i <= 12; i++ {
		require.NoError(t, store.UpsertQuestion(ctx, domain.Question{
			ID:       fmt.Sprintf("q%02d", i),
			Prompt:   fmt.Sprintf("Pergunta %d", i),
			Options:  []string{"certa", "errada", "outra"},
			Correct:  0,
			Category: "legislacao",
			Licenses: []string{"B"},
			Active:   true,
		}))
	}
	due := time.Now().AddDate(0, 0, 10)
	require.NoError(t, store.UpsertPayment(ctx, domain.Payment{
		ID: "p1", StudentID: "s1", Amount: decimal.RequireFromString("450.00"), Status: domain.PaymentPending,
		Description: "Matrícula", Installments: 1, InstallmentNumber: 1, DueDate: due, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.UpsertPayment(ctx, domain.Payment{
		ID: "p2", StudentID: "s1", Amount: decimal.RequireFromString("320.50"), Status: domain.PaymentPending,
		Description: "Aulas práticas 1/3", Installments: 3, InstallmentNumber: 1, DueDate: due, CreatedAt: time.Now(),
	}))
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "portal", "POSTGRES_PASSWORD": "portalpass", "POSTGRES_DB": "portal"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://portal:portalpass@%s:%s/portal?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err := migrator.Migrate(ctx)
	require.NoError(t, err)
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
