package http

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"autoescola-portal/internal/app"
	"autoescola-portal/internal/auth"
	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/logger"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ExamHandler streams one user's exam session over a websocket.
type ExamHandler struct {
	service  *app.ExamService
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

func NewExamHandler(service *app.ExamService, log *logrus.Entry) *ExamHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &ExamHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type inboundMessage struct {
	Type    string                `json:"type"`
	Variant string                `json:"variant"`
	Filter  domain.QuestionFilter `json:"filter"`
	Option  int                   `json:"option"`
	Index   int                   `json:"index"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Handle is mounted behind auth.Middleware; the session belongs to the authenticated user.
func (h *ExamHandler) Handle(c echo.Context) error {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.SignInPrompt)
	}
	h.serve(c.Response(), c.Request(), id.UserID)
	return nil
}

func (h *ExamHandler) serve(w http.ResponseWriter, r *http.Request, userID string) {
	log := h.log.WithField("user_id", userID)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := context.Background()
	// The session does not outlive its connection.
	defer h.service.Close(ctx, userID)

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var forwarders sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	emit := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-closeSignals:
		case <-writerDone:
		}
	}

	notices, cancelNotices := h.service.Notices(userID)
	forwarders.Add(1)
	go func() {
		defer forwarders.Done()
		for {
			select {
			case n, ok := <-notices:
				if !ok {
					return
				}
				emit(outboundMessage{Type: "notice", Payload: n})
			case <-closeSignals:
				return
			}
		}
	}()

	var cancelUpdates func()
	follow := func() {
		if cancelUpdates != nil {
			cancelUpdates()
			cancelUpdates = nil
		}
		updates, cancel, err := h.service.Subscribe(ctx, userID)
		if err != nil {
			return
		}
		cancelUpdates = cancel
		forwarders.Add(1)
		go func() {
			defer forwarders.Done()
			for {
				select {
				case snap, ok := <-updates:
					if !ok {
						return
					}
					emit(outboundMessage{Type: "state", Payload: snap})
				case <-closeSignals:
					return
				}
			}
		}()
	}
	fail := func(err error) {
		emit(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	if _, err := h.service.Snapshot(ctx, userID); err == nil {
		follow()
	}

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			break
		}
		switch in.Type {
		case "open":
			if _, err := h.service.Open(ctx, userID, in.Variant, in.Filter); err != nil {
				fail(err)
				continue
			}
			follow()
		case "start":
			_, err = h.service.Start(ctx, userID)
		case "answer":
			_, err = h.service.Answer(ctx, userID, in.Option)
		case "next":
			_, err = h.service.Next(ctx, userID)
		case "previous":
			_, err = h.service.Previous(ctx, userID)
		case "jump":
			_, err = h.service.Jump(ctx, userID, in.Index)
		case "pause":
			_, err = h.service.TogglePause(ctx, userID)
		case "finish":
			if _, err = h.service.Finish(ctx, userID); err == nil || errors.Is(err, domain.ErrSessionFinished) {
				// The attempt id is only known once finalization returns.
				if snap, serr := h.service.Snapshot(ctx, userID); serr == nil {
					emit(outboundMessage{Type: "state", Payload: snap})
				}
			}
		case "reset":
			_, err = h.service.Reset(ctx, userID)
		default:
			err = errUnsupportedMessage
		}
		if err != nil {
			fail(err)
			err = nil
		}
	}

	close(closeSignals)
	if cancelUpdates != nil {
		cancelUpdates()
	}
	cancelNotices()
	forwarders.Wait()
	close(send)
	<-writerDone
}

var errUnsupportedMessage = errors.New("unsupported message type")
