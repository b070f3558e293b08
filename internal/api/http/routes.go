package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-chat-assistant/internal/chat"
	"github.com/i474232898/weather-chat-assistant/internal/ratelimit"
	"github.com/i474232898/weather-chat-assistant/internal/session"
)

// SessionCookie carries the session id between page loads.
const SessionCookie = "wcs_session"

const localSession = "session"

var validate = validator.New()

// Conversation is the chat surface the handlers drive.
type Conversation interface {
	Handle(ctx context.Context, sess *chat.Session, text string) (chat.Reply, error)
	Reset(ctx context.Context, sess *chat.Session) error
	History(ctx context.Context, sess *chat.Session) ([]chat.Turn, error)
}

// UsageReporter exposes today's call budget consumption.
type UsageReporter interface {
	Usage(ctx context.Context) (ratelimit.Usage, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Chat     Conversation
	Sessions *session.Manager
	Usage    UsageReporter
	Log      *zap.SugaredLogger
}

type handlers struct {
	Deps
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	h := handlers{d}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-chat-assistant",
		})
	})

	app.Get("/", h.withSession, h.startPage)
	app.Post("/", h.withSession, h.throttle, h.submitPage)

	v1 := app.Group("/api/v1")
	v1.Get("/usage", h.usage)

	chatAPI := v1.Group("/chat", h.withSession)
	chatAPI.Post("/", h.throttle, h.chat)
	chatAPI.Get("/history", h.history)
}

// chatRequest is the JSON body of POST /api/v1/chat.
type chatRequest struct {
	Message string `json:"message" validate:"required,max=500"`
}

// chatForm is the page form submission.
type chatForm struct {
	Message string `form:"user_input" validate:"required,max=500"`
}

// pageData feeds views/index.html.
type pageData struct {
	History   []chat.Turn
	Reply     *chat.Reply
	Error     string
	MaxLength int
}

// withSession resolves the session from the cookie, starting one when needed.
func (h handlers) withSession(c *fiber.Ctx) error {
	sess, created := h.Sessions.Resume(c.Cookies(SessionCookie))
	if created {
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	c.Locals(localSession, sess)
	return c.Next()
}

func (h handlers) throttle(c *fiber.Ctx) error {
	if !h.Sessions.Allow(currentSession(c).ID) {
		return fiber.NewError(fiber.StatusTooManyRequests, "too many messages, slow down")
	}
	return c.Next()
}

func currentSession(c *fiber.Ctx) *chat.Session {
	return c.Locals(localSession).(*chat.Session)
}

// startPage begins the conversation over on every fresh page load.
func (h handlers) startPage(c *fiber.Ctx) error {
	sess := currentSession(c)
	if err := h.Chat.Reset(c.UserContext(), sess); err != nil {
		h.Log.Errorw("reset session", "session", sess.ID, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to start conversation")
	}
	return c.Render("index", pageData{MaxLength: chat.MaxMessageLength})
}

func (h handlers) submitPage(c *fiber.Ctx) error {
	sess := currentSession(c)
	data := pageData{MaxLength: chat.MaxMessageLength}
	status := fiber.StatusOK

	var form chatForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form submission")
	}
	form.Message = strings.TrimSpace(form.Message)

	if err := validate.Struct(form); err != nil {
		if form.Message != "" {
			status = fiber.StatusBadRequest
			data.Error = "Messages are limited to 500 characters."
		}
	} else {
		reply, err := h.Chat.Handle(c.UserContext(), sess, form.Message)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
		case errors.Is(err, chat.ErrMessageTooLong):
			status = fiber.StatusBadRequest
			data.Error = "Messages are limited to 500 characters."
		case err != nil:
			h.Log.Errorw("handle turn", "session", sess.ID, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to process message")
		default:
			data.Reply = &reply
		}
	}

	turns, err := h.Chat.History(c.UserContext(), sess)
	if err != nil {
		h.Log.Errorw("load history", "session", sess.ID, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load chat history")
	}
	data.History = turns

	return c.Status(status).Render("index", data)
}

func (h handlers) chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	sess := currentSession(c)
	reply, err := h.Chat.Handle(c.UserContext(), sess, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMessageTooLong) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		h.Log.Errorw("handle turn", "session", sess.ID, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to process message")
	}

	return c.JSON(reply)
}

func (h handlers) history(c *fiber.Ctx) error {
	sess := currentSession(c)
	turns, err := h.Chat.History(c.UserContext(), sess)
	if err != nil {
		h.Log.Errorw("load history", "session", sess.ID, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load chat history")
	}
	if turns == nil {
		turns = []chat.Turn{}
	}
	return c.JSON(fiber.Map{
		"sessionId": sess.ID,
		"turns":     turns,
	})
}

func (h handlers) usage(c *fiber.Ctx) error {
	u, err := h.Usage.Usage(c.UserContext())
	if err != nil {
		h.Log.Errorw("read usage", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read API usage")
	}
	return c.JSON(fiber.Map{
		"usage":       u,
		"generatedAt": time.Now().UTC(),
	})
}
