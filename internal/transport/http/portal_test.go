package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"autoescola-portal/internal/app"
	"autoescola-portal/internal/auth"
	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/infra/memory"
	"autoescola-portal/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type portal struct {
	server *httptest.Server
	store  *memory.Store
	mailer *mailbox
}

type mailbox struct {
	mu   sync.Mutex
	sent []domain.Email
}

func (m *mailbox) Send(_ context.Context, msg domain.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mailbox) messages() []domain.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Email(nil), m.sent...)
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	store := memory.NewStore()
	hash, err := auth.HashPassword("s3nha-forte")
	require.NoError(t, err)
	store.PutUser(domain.User{ID: "u1", Email: "ana@example.com", Name: "Ana", Role: "student", PasswordHash: hash})
	store.PutUser(domain.User{ID: "u2", Email: "visitante@example.com", Name: "Visitante", Role: "student", PasswordHash: hash})
	store.PutStudent(domain.Student{ID: "s1", UserID: "u1", Name: "Ana", Category: "B", TheoreticalRequired: 45, PracticalRequired: 20})
	store.PutPayment(domain.Payment{
		ID: "p1", StudentID: "s1", Amount: decimal.RequireFromString("450.00"), Status: domain.PaymentPending,
		Description: "Matrícula", DueDate: time.Now().AddDate(0, 0, 5), CreatedAt: time.Now(),
	})

	authSvc, err := auth.NewService(store, memory.NewRevocationList(), "test-secret", time.Hour, nil)
	require.NoError(t, err)
	mailer := &mailbox{}
	billing := app.NewBillingService(store, store, memory.NewReceiptStore("https://files.example.com"), time.Hour, nil, nil)
	t.Cleanup(billing.Close)

	svc := Services{
		Auth: authSvc,
		Exams: app.NewExamService(memory.NewSessionStore(), store, store, []app.Variant{
			app.FixedVariant(),
			app.BankVariant(store, store, store, app.NewSeededSampler(1), nil, nil),
		}, nil, app.ExamOptions{}, nil, nil),
		Booking:   app.NewBookingService(app.BookingDeps{Students: store, Instructors: store, Vehicles: store, Lessons: store, Notifications: store, Mailer: mailer}),
		Billing:   billing,
		Dashboard: app.NewDashboardService(store, store, store, nil),
		Contact:   app.NewContactService(mailer, "contato@autoescola.com.br", nil),
		Location:  time.UTC,
	}
	server := httptest.NewServer(NewServer(svc, metrics.New(), nil))
	t.Cleanup(server.Close)
	return &portal{server: server, store: store, mailer: mailer}
}

func (p *portal) signIn(t *testing.T, email string) string {
	t.Helper()
	resp := p.do(t, http.MethodPost, "/v1/auth/sign-in", "", map[string]string{"email": email, "password": "s3nha-forte"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out signInResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (p *portal) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, p.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
