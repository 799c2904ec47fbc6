package http

import (
	"errors"
	"net/http"
	"time"

	"autoescola-portal/internal/app"
	"autoescola-portal/internal/auth"
	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/logger"
	"autoescola-portal/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Auth      *auth.Service
	Exams     *app.ExamService
	Booking   *app.BookingService
	Billing   *app.BillingService
	Dashboard *app.DashboardService
	Contact   *app.ContactService
	Location  *time.Location
}

// NewServer builds the echo router. m and log may be nil in tests.
func NewServer(svc Services, m *metrics.Metrics, log *logger.Logger) *echo.Echo {
	if svc.Location == nil {
		svc.Location = time.Local
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	if m != nil {
		e.Use(m.EchoMiddleware())
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	if log != nil {
		e.Use(logger.EchoMiddleware(log))
	}

	examLog := logger.Discard()
	if log != nil {
		examLog = log.Component("exam_ws")
	}
	h := &handlers{svc: svc, exams: NewExamHandler(svc.Exams, examLog)}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	v1 := e.Group("/v1")
	v1.POST("/auth/sign-in", h.signIn)
	v1.POST("/auth/sign-out", h.signOut)
	v1.GET("/auth/session", h.session)
	v1.POST("/contact", h.contact)

	protected := v1.Group("", auth.Middleware(svc.Auth))
	protected.GET("/dashboard", h.dashboard)
	protected.GET("/exams/history", h.examHistory)
	protected.GET("/exams/ws", h.exams.Handle)
	protected.GET("/booking/options", h.bookingOptions)
	protected.GET("/booking/slots", h.bookingSlots)
	protected.POST("/booking/lessons", h.bookLesson)
	protected.GET("/billing", h.billing)
	protected.POST("/billing/payments/:id/pay", h.pay)
	protected.POST("/billing/payments/:id/receipt", h.receipt)
	return e
}

type handlers struct {
	svc   Services
	exams *ExamHandler
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token    string        `json:"token"`
	Identity auth.Identity `json:"identity"`
}

type sessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	Identity      *auth.Identity `json:"identity,omitempty"`
}

type payRequest struct {
	Method string `json:"method"`
}

func (h *handlers) signIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	token, id, err := h.svc.Auth.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, signInResponse{Token: token, Identity: id})
}

func (h *handlers) signOut(c echo.Context) error {
	if err := h.svc.Auth.SignOut(c.Request().Context(), auth.TokenFrom(c.Request())); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// session reports the current identity; an invalid or missing token is simply anonymous.
func (h *handlers) session(c echo.Context) error {
	id, err := h.svc.Auth.Authenticate(c.Request().Context(), auth.TokenFrom(c.Request()))
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			return c.JSON(http.StatusOK, sessionResponse{})
		}
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{Authenticated: true, Identity: &id})
}

func (h *handlers) contact(c echo.Context) error {
	var form app.ContactForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.Contact.Submit(c.Request().Context(), form); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *handlers) dashboard(c echo.Context) error {
	out, err := h.svc.Dashboard.Overview(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) examHistory(c echo.Context) error {
	out, err := h.svc.Exams.History(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) bookingOptions(c echo.Context) error {
	out, err := h.svc.Booking.Options(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) bookingSlots(c echo.Context) error {
	instructorID := c.QueryParam("instructorId")
	if instructorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "instructorId is required")
	}
	date, err := time.ParseInLocation("2006-01-02", c.QueryParam("date"), h.svc.Location)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	slots, err := h.svc.Booking.AvailableSlots(c.Request().Context(), instructorID, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"slots": slots})
}

func (h *handlers) bookLesson(c echo.Context) error {
	var req app.BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	lesson, err := h.svc.Booking.Book(c.Request().Context(), userID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, lesson)
}

func (h *handlers) billing(c echo.Context) error {
	out, err := h.svc.Billing.Overview(c.Request().Context(), userID(c), c.QueryParam("status"), c.QueryParam("sort"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) pay(c echo.Context) error {
	var req payRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Method == "" {
		req.Method = "pix"
	}
	payment, err := h.svc.Billing.Pay(c.Request().Context(), userID(c), c.Param("id"), req.Method)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, payment)
}

func (h *handlers) receipt(c echo.Context) error {
	payment, err := h.svc.Billing.Receipt(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payment)
}

func userID(c echo.Context) string {
	id, _ := auth.IdentityFrom(c)
	return id.UserID
}

type errorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errorHandler maps domain errors onto status codes.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := statusOf(err)
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

func statusOf(err error) (int, errorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, errorResponse{Message: msg}
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return http.StatusBadRequest, errorResponse{Message: "invalid input", Fields: fields}
	}

	switch {
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotEnrolled), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, errorResponse{Message: err.Error()}
	case errors.Is(err, domain.ErrInsufficientQuestions), errors.Is(err, domain.ErrNoQuestions):
		return http.StatusUnprocessableEntity, errorResponse{Message: err.Error()}
	case errors.Is(err, domain.ErrSessionActive), errors.Is(err, domain.ErrSessionFinished),
		errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrPauseUnsupported),
		errors.Is(err, domain.ErrSlotUnavailable), errors.Is(err, domain.ErrPaymentNotPayable):
		return http.StatusConflict, errorResponse{Message: err.Error()}
	case errors.Is(err, domain.ErrDateOutOfRange), errors.Is(err, domain.ErrVehicleRequired),
		errors.Is(err, domain.ErrUnknownVariant), errors.Is(err, domain.ErrInvalidQuestion):
		return http.StatusBadRequest, errorResponse{Message: err.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Message: http.StatusText(http.StatusInternalServerError)}
}
