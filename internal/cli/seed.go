package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"autoescola-portal/internal/auth"
	"autoescola-portal/internal/config"
	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/infra/postgres"
	"autoescola-portal/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSeedCmd loads a YAML fixture file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var fixturesPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions, accounts, instructors, vehicles and payments from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log := logger.New("autoescola-portal", cfg.Log.Level)
			fx, err := loadFixtures(fixturesPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			counts, err := seed(cmd.Context(), postgres.NewStore(pool), fx)
			if err != nil {
				return err
			}
			log.Component("seed").WithField("records", counts).Info("fixtures loaded")
			return nil
		},
	}
	cmd.Flags().StringVar(&fixturesPath, "file", "config/seed.yaml", "path to the YAML fixture file")
	return cmd
}

type fixtures struct {
	Questions   []domain.Question   `yaml:"questions"`
	Users       []userFixture       `yaml:"users"`
	Instructors []instructorFixture `yaml:"instructors"`
	Vehicles    []vehicleFixture    `yaml:"vehicles"`
	Payments    []paymentFixture    `yaml:"payments"`
}

// userFixture is an account, optionally enrolled as a student.
type userFixture struct {
	ID       string `yaml:"id"`
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
	Student  *struct {
		ID                  string   `yaml:"id"`
		Category            string   `yaml:"category"`
		Status              string   `yaml:"status"`
		TheoreticalHours    int      `yaml:"theoretical_hours"`
		PracticalHours      int      `yaml:"practical_hours"`
		TheoreticalRequired int      `yaml:"theoretical_required"`
		PracticalRequired   int      `yaml:"practical_required"`
		Points              int      `yaml:"points"`
		Badges              []string `yaml:"badges"`
	} `yaml:"student"`
}

type instructorFixture struct {
	ID         string              `yaml:"id"`
	Name       string              `yaml:"name"`
	Categories []string            `yaml:"categories"`
	Rating     float64             `yaml:"rating"`
	Avatar     string              `yaml:"avatar"`
	Status     string              `yaml:"status"`
	Schedule   map[string][]string `yaml:"schedule"`
}

type vehicleFixture struct {
	ID       string `yaml:"id"`
	Model    string `yaml:"model"`
	Brand    string `yaml:"brand"`
	Plate    string `yaml:"plate"`
	Category string `yaml:"category"`
	Status   string `yaml:"status"`
}

type paymentFixture struct {
	ID                string `yaml:"id"`
	StudentID         string `yaml:"student_id"`
	Amount            string `yaml:"amount"`
	Status            string `yaml:"status"`
	Description       string `yaml:"description"`
	Category          string `yaml:"category"`
	Installments      int    `yaml:"installments"`
	InstallmentNumber int    `yaml:"installment_number"`
	DueDate           string `yaml:"due_date"`
}

// seeder is implemented by postgres.Store.
type seeder interface {
	UpsertQuestion(ctx context.Context, q domain.Question) error
	UpsertUser(ctx context.Context, u domain.User) error
	UpsertStudent(ctx context.Context, st domain.Student) error
	UpsertInstructor(ctx context.Context, in domain.Instructor) error
	UpsertVehicle(ctx context.Context, v domain.Vehicle) error
	UpsertPayment(ctx context.Context, p domain.Payment) error
}

func loadFixtures(path string) (fixtures, error) {
	var fx fixtures
	data, err := os.ReadFile(path)
	if err != nil {
		return fx, err
	}
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fx, fmt.Errorf("parse fixtures: %w", err)
	}
	return fx, nil
}

func seed(ctx context.Context, db seeder, fx fixtures) (map[string]int, error) {
	counts := map[string]int{}
	for _, q := range fx.Questions {
		if err := q.Validate(); err != nil {
			return counts, fmt.Errorf("question %q: %w", q.ID, err)
		}
		if err := db.UpsertQuestion(ctx, q); err != nil {
			return counts, fmt.Errorf("question %q: %w", q.ID, err)
		}
		counts["questions"]++
	}

	for _, u := range fx.Users {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return counts, err
		}
		if err := db.UpsertUser(ctx, domain.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, PasswordHash: hash}); err != nil {
			return counts, fmt.Errorf("user %q: %w", u.Email, err)
		}
		counts["users"]++
		if u.Student == nil {
			continue
		}
		st := u.Student
		if err := db.UpsertStudent(ctx, domain.Student{
			ID:                  st.ID,
			UserID:              u.ID,
			Name:                u.Name,
			Email:               u.Email,
			Category:            st.Category,
			Status:              st.Status,
			TheoreticalHours:    st.TheoreticalHours,
			PracticalHours:      st.PracticalHours,
			TheoreticalRequired: st.TheoreticalRequired,
			PracticalRequired:   st.PracticalRequired,
			Points:              st.Points,
			Badges:              st.Badges,
		}); err != nil {
			return counts, fmt.Errorf("student %q: %w", st.ID, err)
		}
		counts["students"]++
	}

	for _, in := range fx.Instructors {
		if err := db.UpsertInstructor(ctx, domain.Instructor(in)); err != nil {
			return counts, fmt.Errorf("instructor %q: %w", in.ID, err)
		}
		counts["instructors"]++
	}

	for _, v := range fx.Vehicles {
		if err := db.UpsertVehicle(ctx, domain.Vehicle(v)); err != nil {
			return counts, fmt.Errorf("vehicle %q: %w", v.ID, err)
		}
		counts["vehicles"]++
	}

	now := time.Now()
	for _, p := range fx.Payments {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return counts, fmt.Errorf("payment %q amount: %w", p.ID, err)
		}
		due, err := time.Parse("2006-01-02", p.DueDate)
		if err != nil {
			return counts, fmt.Errorf("payment %q due date: %w", p.ID, err)
		}
		if err := db.UpsertPayment(ctx, domain.Payment{
			ID:                p.ID,
			StudentID:         p.StudentID,
			Amount:            amount,
			Status:            p.Status,
			Description:       p.Description,
			Category:          p.Category,
			Installments:      p.Installments,
			InstallmentNumber: p.InstallmentNumber,
			DueDate:           due,
			CreatedAt:         now,
		}); err != nil {
			return counts, fmt.Errorf("payment %q: %w", p.ID, err)
		}
		counts["payments"]++
	}
	return counts, nil
}
