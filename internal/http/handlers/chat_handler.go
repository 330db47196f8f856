// Chat HTTP handlers.
//
// This file exposes REST endpoints for chat sessions:
//   - POST /chat/sessions                 (create)
//   - POST /chat/sessions/{id}/messages   (run one assistant turn)
//   - GET  /chat/sessions/{id}/turns      (transcript, paginated, ETag support)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// turn exists for (user, session, key), the stored bot turn is returned with
// `Idempotency-Replayed: true` and nothing is recomputed.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/http/middleware"
	"github.com/tbourn/go-bookshop-assistant/internal/repo"
	"github.com/tbourn/go-bookshop-assistant/internal/services"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for sending a user message.
type PostMessageRequest struct {
	// Content is the user utterance. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Gợi ý sách kinh tế dưới 150k"`
}

// PostMessageResponse carries the bot turn produced for a message.
type PostMessageResponse struct {
	TurnID    string                 `json:"turn_id"    example:"5b0f6a52-1f4b-4d6e-9d43-0b1f2f7f3c11"`
	SessionID string                 `json:"session_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Reply     domain.ChatBotResponse `json:"reply"`
}

// ListTurnsResponse wraps a page of turns and pagination information.
type ListTurnsResponse struct {
	Turns      []domain.ChatTurn `json:"turns"`
	Pagination Pagination        `json:"pagination"`
}

// idempotencyKey prefers the key validated by middleware and falls back to
// the raw header when the middleware is not mounted.
func idempotencyKey(c *gin.Context) string {
	if k, ok := middleware.GetIdempotencyKey(c); ok {
		return k
	}
	return strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
}

//
// Handlers
//

// CreateSession godoc
// @ID          createSession
// @Summary     Start a chat session
// @Description Creates a chat session for the current user.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     201  {object}  domain.ChatSession
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat/sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	sess, err := h.chatSvc.CreateSession(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, sess)
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message to the assistant
// @Description Classifies the message, runs the matching dialogue flow and stores both turns.
// @Description Add-to-cart replies carry pending actions that must be confirmed separately.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID that owns the session"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Session ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostMessageRequest  true  "User message payload"
//
// @Success     200  {object}  handlers.PostMessageResponse  "Assistant reply"
// @Header      200  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse        "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse        "Apology text; details are logged"
// @Router      /chat/sessions/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	bot, replayed, err := h.chatSvc.SendMessage(c.Request.Context(), userID(c), sessionID, req.Content, idempotencyKey(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyContent):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case errors.Is(err, services.ErrContentTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", h.chatSvc.MaxRunes()))
		case errors.Is(err, services.ErrSessionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		default:
			lg := middleware.LoggerFrom(c)
			lg.Error().Err(err).Str("session_id", sessionID).Msg("chat turn failed")
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, services.ApologyText)
		}
		return
	}

	if replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusOK, PostMessageResponse{
		TurnID:    bot.ID,
		SessionID: bot.SessionID,
		Reply:     bot.Response(),
	})
}

// ListTurns godoc
// @ID          listTurns
// @Summary     List the transcript of a session
// @Description Returns user and bot turns oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       id             path    string  true  "Session ID (UUID)"           format(uuid)
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTurnsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chat/sessions/{id}/turns [get]
func (h *Handlers) ListTurns(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if svc, isGorm := h.chatSvc.(*services.ChatService); isGorm && svc.DB != nil {
		if count, maxTS, err := repo.TurnsStats(ctx, svc.DB, sessionID); err == nil {
			scope := fmt.Sprintf("turns:%s:%s:%d:%d", uid, sessionID, page, pageSize)
			if notModified(c, scope, count, maxTS) {
				return
			}
		}
	}

	items, total, err := h.chatSvc.ListTurns(ctx, uid, sessionID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.ChatTurn{}
	}
	ok(c, http.StatusOK, ListTurnsResponse{
		Turns:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}
