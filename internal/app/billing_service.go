package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"text/template"
	"time"

	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/logger"
	"autoescola-portal/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultProcessingDelay is how long a simulated payment stays in processing.
const DefaultProcessingDelay = 2 * time.Second

// BillingOverview is the financial page of a student.
type BillingOverview struct {
	Payments     []domain.Payment `json:"payments"`
	TotalPaid    decimal.Decimal  `json:"totalPaid"`
	TotalPending decimal.Decimal  `json:"totalPending"`
	TotalOverdue decimal.Decimal  `json:"totalOverdue"`
	Count        int              `json:"count"`
}

// BillingService shows payments and simulates paying them. Nothing here talks to a gateway.
type BillingService struct {
	students StudentStore
	payments PaymentStore
	receipts ReceiptStore
	delay    time.Duration
	clock    func() time.Time
	after    func(d time.Duration, f func()) *time.Timer
	log      *logrus.Entry
	metrics  *metrics.Metrics

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func NewBillingService(students StudentStore, payments PaymentStore, receipts ReceiptStore, delay time.Duration, log *logrus.Entry, m *metrics.Metrics) *BillingService {
	if delay <= 0 {
		delay = DefaultProcessingDelay
	}
	if log == nil {
		log = logger.Discard()
	}
	return &BillingService{
		students: students,
		payments: payments,
		receipts: receipts,
		delay:    delay,
		clock:    time.Now,
		after:    time.AfterFunc,
		log:      log,
		metrics:  m,
		pending:  make(map[string]*time.Timer),
	}
}

// Overview lists the student's payments filtered by status ("" or "all" for every status),
// sorted by "date" (newest first) or "amount" (largest first), with totals over all payments.
func (s *BillingService) Overview(ctx context.Context, userID, status, sortBy string) (BillingOverview, error) {
	student, err := s.students.StudentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return BillingOverview{}, domain.ErrNotEnrolled
		}
		return BillingOverview{}, err
	}
	all, err := s.payments.ListPayments(ctx, student.ID)
	if err != nil {
		return BillingOverview{}, fmt.Errorf("list payments: %w", err)
	}

	now := s.clock()
	overview := BillingOverview{
		TotalPaid:    decimal.Zero,
		TotalPending: decimal.Zero,
		TotalOverdue: decimal.Zero,
		Count:        len(all),
	}
	filtered := make([]domain.Payment, 0, len(all))
	for _, p := range all {
		switch p.Status {
		case domain.PaymentApproved:
			overview.TotalPaid = overview.TotalPaid.Add(p.Amount)
		case domain.PaymentPending:
			overview.TotalPending = overview.TotalPending.Add(p.Amount)
			if p.DueDate.Before(now) {
				overview.TotalOverdue = overview.TotalOverdue.Add(p.Amount)
			}
		}
		if status == "" || status == "all" || p.Status == status {
			filtered = append(filtered, p)
		}
	}

	switch sortBy {
	case "amount":
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Amount.GreaterThan(filtered[j].Amount) })
	default:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].CreatedAt.After(filtered[j].CreatedAt) })
	}
	overview.Payments = filtered
	return overview, nil
}

// Pay moves a pending payment to processing and approves it after the processing delay.
func (s *BillingService) Pay(ctx context.Context, userID, paymentID, method string) (domain.Payment, error) {
	payment, err := s.ownedPayment(ctx, userID, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment.Status != domain.PaymentPending {
		return domain.Payment{}, domain.ErrPaymentNotPayable
	}

	payment.Status = domain.PaymentProcessing
	if err := s.payments.UpdatePayment(ctx, payment); err != nil {
		return domain.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	s.metrics.PaymentStatus(domain.PaymentProcessing)

	s.mu.Lock()
	s.wg.Add(1)
	s.pending[paymentID] = s.after(s.delay, func() {
		defer s.wg.Done()
		s.approve(paymentID, method)
	})
	s.mu.Unlock()
	return payment, nil
}

func (s *BillingService) approve(paymentID, method string) {
	s.mu.Lock()
	delete(s.pending, paymentID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	entry := s.log.WithField("payment_id", paymentID)

	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		entry.WithError(err).Error("load payment for approval")
		return
	}
	if payment.Status != domain.PaymentProcessing {
		return
	}
	paidAt := s.clock()
	payment.Status = domain.PaymentApproved
	payment.PaidAt = &paidAt
	payment.Method = method
	if err := s.payments.UpdatePayment(ctx, payment); err != nil {
		entry.WithError(err).Error("approve payment")
		return
	}
	s.metrics.PaymentStatus(domain.PaymentApproved)
	entry.Info("payment approved")
}

// Close cancels approvals that have not fired yet and waits for running ones.
func (s *BillingService) Close() {
	s.mu.Lock()
	for id, t := range s.pending {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`RECEIPT {{.ID}}
Student: {{.StudentID}}
Description: {{.Description}}
Category: {{.Category}}
Installment: {{.InstallmentNumber}}/{{.Installments}}
Amount: R$ {{.Amount.StringFixed 2}}
Method: {{.Method}}
Paid at: {{if .PaidAt}}{{.PaidAt.Format "02/01/2006 15:04"}}{{end}}
`))

// Receipt renders a receipt for the payment in whatever status it is in, uploads it and
// stores its URL. An unpaid payment renders with an empty paid-at line.
func (s *BillingService) Receipt(ctx context.Context, userID, paymentID string) (domain.Payment, error) {
	payment, err := s.ownedPayment(ctx, userID, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, payment); err != nil {
		return domain.Payment{}, fmt.Errorf("render receipt: %w", err)
	}
	url, err := s.receipts.UploadReceipt(ctx, "receipts/"+payment.ID+".txt", &buf)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("upload receipt: %w", err)
	}
	payment.Receipt = url
	if err := s.payments.UpdatePayment(ctx, payment); err != nil {
		return domain.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	return payment, nil
}

func (s *BillingService) ownedPayment(ctx context.Context, userID, paymentID string) (domain.Payment, error) {
	student, err := s.students.StudentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Payment{}, domain.ErrNotEnrolled
		}
		return domain.Payment{}, err
	}
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment.StudentID != student.ID {
		return domain.Payment{}, domain.ErrNotFound
	}
	return payment, nil
}
