package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-bookshop-assistant/internal/coupon"
	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/services"
	"github.com/tbourn/go-bookshop-assistant/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChatService runs chat turns and exposes the transcript.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatService interface {
	// CreateSession starts a new chat session for userID.
	CreateSession(ctx context.Context, userID string) (*domain.ChatSession, error)
	// SendMessage runs one turn and returns the stored bot turn. replayed is
	// true when idemKey matched an earlier request.
	SendMessage(ctx context.Context, userID, sessionID, content, idemKey string) (bot *domain.ChatTurn, replayed bool, err error)
	// ListTurns returns a page of the session transcript and the total count.
	ListTurns(ctx context.Context, userID, sessionID string, page, pageSize int) ([]domain.ChatTurn, int64, error)
	// MaxRunes is the accepted message length after sanitizing.
	MaxRunes() int
}

// ActionService resolves cart actions proposed by the assistant.
type ActionService interface {
	Confirm(ctx context.Context, userID, sessionID, actionID string) (*domain.PendingAction, error)
	Cancel(ctx context.Context, userID, sessionID, actionID string) (*domain.PendingAction, error)
}

// CouponService grants, checks and consumes discount codes.
type CouponService interface {
	Grant(ctx context.Context, in services.GrantInput) (*domain.Coupon, error)
	Validate(ctx context.Context, userID, code string, subtotal decimal.Decimal) (coupon.Verdict, *domain.Coupon, error)
	Use(ctx context.Context, userID, code, usedContext string) (coupon.Verdict, error)
	ListMine(ctx context.Context, userID string, includeUsed, includeInactive bool) ([]domain.Coupon, error)
	ListEligible(ctx context.Context, userID string, subtotal decimal.Decimal) ([]coupon.Eligible, error)
}

// BookService is the read-only catalog surface.
type BookService interface {
	SearchByKeyword(ctx context.Context, keyword string, page, pageSize int) ([]domain.Book, error)
	Trending(ctx context.Context, days, limit int) ([]domain.Book, error)
}

// CartService lists the user's cart.
type CartService interface {
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	chatSvc   ChatService
	actionSvc ActionService
	couponSvc CouponService
	bookSvc   BookService
	cartSvc   CartService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(chatSvc ChatService, actionSvc ActionService, couponSvc CouponService, bookSvc BookService, cartSvc CartService) *Handlers {
	return &Handlers{
		chatSvc:   chatSvc,
		actionSvc: actionSvc,
		couponSvc: couponSvc,
		bookSvc:   bookSvc,
		cartSvc:   cartSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}
