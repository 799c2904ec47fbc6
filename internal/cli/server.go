package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"autoescola-portal/internal/app"
	"autoescola-portal/internal/auth"
	"autoescola-portal/internal/config"
	"autoescola-portal/internal/infra/email"
	"autoescola-portal/internal/infra/ftp"
	"autoescola-portal/internal/infra/memory"
	"autoescola-portal/internal/infra/postgres"
	redisinfra "autoescola-portal/internal/infra/redis"
	"autoescola-portal/internal/logger"
	"autoescola-portal/internal/metrics"
	transport "autoescola-portal/internal/transport/http"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the portal API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores is the persistence the services run on: Postgres when configured, memory otherwise.
type stores interface {
	app.QuestionBank
	app.AttemptStore
	app.StudentStore
	app.InstructorStore
	app.VehicleStore
	app.LessonStore
	app.NotificationStore
	app.PaymentStore
	auth.UserStore
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New("autoescola-portal", cfg.Log.Level)
	entry := log.Component("server")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store stores = memory.NewStore()
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	} else {
		entry.Warn("postgres not configured, using in-memory store")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	questionTTL := config.TTLDuration(cfg.Exam.QuestionTTL, 10*time.Minute)
	var bank app.QuestionBank
	var sessions app.SessionRepository
	var revoked auth.RevocationStore
	if redisClient != nil {
		bank = redisinfra.NewQuestionCache(redisClient, store, questionTTL, log.Component("questions"))
		sessions = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
		revoked = redisinfra.NewRevocationList(redisClient)
	} else {
		bank = memory.NewCachedQuestionBank(store, questionTTL)
		sessions = memory.NewSessionStore()
		revoked = memory.NewRevocationList()
	}

	var mailer app.Mailer = email.NewConsoleMailer(log.Component("mail"))
	if cfg.Mail.SendgridKey != "" {
		mailer = email.NewSendgridMailer(cfg.Mail.SendgridKey, cfg.Mail.SendgridHost, cfg.Mail.FromName, cfg.Mail.FromEmail)
	}

	var receipts app.ReceiptStore = memory.NewReceiptStore(cfg.FTP.BaseURL)
	if cfg.FTP.Host != "" {
		ftpStore := ftp.NewReceiptStore(cfg.FTP.Host, cfg.FTP.Port, cfg.FTP.User, cfg.FTP.Password, cfg.FTP.BaseURL)
		defer ftpStore.Close()
		receipts = ftpStore
	}

	m := metrics.New()
	validate := validator.New()
	loc := cfg.Location()

	authSvc, err := auth.NewService(store, revoked, cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL), log.Component("auth"))
	if err != nil {
		return err
	}
	authLog := log.Component("auth")
	unsubscribe := authSvc.Subscribe(func(c auth.Change) {
		authLog.WithField("user_id", c.Identity.UserID).WithField("authenticated", c.Authenticated).Debug("auth state changed")
	})
	defer unsubscribe()

	sampler := app.NewSampler()
	if cfg.Exam.Seed != 0 {
		sampler = app.NewSeededSampler(cfg.Exam.Seed)
	}
	examLog := log.Component("exam")
	exams := app.NewExamService(sessions, store, store, []app.Variant{
		app.FixedVariant(),
		app.BankVariant(bank, store, store, sampler, examLog, m),
	}, app.NewNoticeBoard(), app.ExamOptions{
		FinalizeTimeout: config.TTLDuration(cfg.Exam.FinalizeTimeout, 0),
	}, examLog, m)

	billing := app.NewBillingService(store, store, receipts, config.TTLDuration(cfg.Billing.ProcessingDelay, app.DefaultProcessingDelay), log.Component("billing"), m)
	defer billing.Close()

	e := transport.NewServer(transport.Services{
		Auth:  authSvc,
		Exams: exams,
		Booking: app.NewBookingService(app.BookingDeps{
			Students:      store,
			Instructors:   store,
			Vehicles:      store,
			Lessons:       store,
			Notifications: store,
			Mailer:        mailer,
			Validate:      validate,
			Location:      loc,
			Log:           log.Component("booking"),
			Metrics:       m,
		}),
		Billing:   billing,
		Dashboard: app.NewDashboardService(store, store, store, nil),
		Contact:   app.NewContactService(mailer, cfg.Mail.SchoolInbox, validate),
		Location:  loc,
	}, m, log)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     e,
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entry.WithField("port", finalPort).Info("starting portal api")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		entry.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
