// Action HTTP handlers.
//
// The assistant only proposes cart changes. These endpoints let the user
// accept or reject a proposal exactly once:
//   - POST /chat/sessions/{id}/actions/{actionId}/confirm
//   - POST /chat/sessions/{id}/actions/{actionId}/cancel
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/services"
)

type resolveFunc func(ctx context.Context, userID, sessionID, actionID string) (*domain.PendingAction, error)

// ConfirmAction godoc
// @ID          confirmAction
// @Summary     Confirm a proposed cart action
// @Description Marks the pending action confirmed and adds the book to the user's cart.
// @Tags        Actions
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Session ID (UUID)"      format(uuid)
// @Param       actionId   path    string  true  "Action ID (UUID)"       format(uuid)
//
// @Success     200  {object}  domain.PendingAction
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Action not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Action already resolved or book no longer available"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat/sessions/{id}/actions/{actionId}/confirm [post]
func (h *Handlers) ConfirmAction(c *gin.Context) {
	h.resolveAction(c, h.actionSvc.Confirm)
}

// CancelAction godoc
// @ID          cancelAction
// @Summary     Cancel a proposed cart action
// @Description Marks the pending action cancelled. The cart is not touched.
// @Tags        Actions
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Session ID (UUID)"      format(uuid)
// @Param       actionId   path    string  true  "Action ID (UUID)"       format(uuid)
//
// @Success     200  {object}  domain.PendingAction
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Action not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Action already resolved"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat/sessions/{id}/actions/{actionId}/cancel [post]
func (h *Handlers) CancelAction(c *gin.Context) {
	h.resolveAction(c, h.actionSvc.Cancel)
}

func (h *Handlers) resolveAction(c *gin.Context, resolve resolveFunc) {
	sessionID, actionID := c.Param("id"), c.Param("actionId")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}
	if _, err := uuid.Parse(actionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "action id must be a UUID")
		return
	}

	a, err := resolve(c.Request.Context(), userID(c), sessionID, actionID)
	switch {
	case err == nil:
		ok(c, http.StatusOK, a)
	case errors.Is(err, services.ErrActionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "action not found")
	case errors.Is(err, services.ErrActionResolved):
		fail(c, http.StatusConflict, ErrCodeConflict, "action already resolved")
	case errors.Is(err, services.ErrBookUnavailable):
		fail(c, http.StatusConflict, ErrCodeConflict, "book no longer available")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
