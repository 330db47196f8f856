// Catalog and cart HTTP handlers.
//
//   - GET /books/search     (keyword search, paginated)
//   - GET /books/trending   (best sellers of the last days)
//   - GET /cart             (the user's cart)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/utils"
)

// BooksResponse wraps a list of books. Page and PageSize are set for search.
type BooksResponse struct {
	Books    []domain.Book `json:"books"`
	Page     int           `json:"page,omitempty"`
	PageSize int           `json:"page_size,omitempty"`
}

// CartResponse wraps the user's cart lines.
type CartResponse struct {
	Items []domain.CartItem `json:"items"`
}

// SearchBooks godoc
// @ID          searchBooks
// @Summary     Search books
// @Description Keyword search over Vietnamese and English titles and authors, accent-insensitive.
// @Description An empty q returns the catalog in default order.
// @Tags        Books
// @Produce     json
//
// @Param       q          query  string  false "Keyword"         example(nha gia kim)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.BooksResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/search [get]
func (h *Handlers) SearchBooks(c *gin.Context) {
	page, pageSize := clampPagination(c)
	books, err := h.bookSvc.SearchByKeyword(c.Request.Context(), strings.TrimSpace(c.Query("q")), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if books == nil {
		books = []domain.Book{}
	}
	ok(c, http.StatusOK, BooksResponse{Books: books, Page: page, PageSize: pageSize})
}

// TrendingBooks godoc
// @ID          trendingBooks
// @Summary     Trending books
// @Description Books ranked by units sold in the last days, falling back to all-time order count.
// @Tags        Books
// @Produce     json
//
// @Param       days   query  int  false "Look-back window in days"  minimum(1) maximum(365) default(30)
// @Param       limit  query  int  false "Maximum books"             minimum(1) maximum(50)  default(12)
//
// @Success     200  {object}  handlers.BooksResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/trending [get]
func (h *Handlers) TrendingBooks(c *gin.Context) {
	days := utils.ClampInt(utils.AtoiDefault(c.Query("days"), 30), 1, 365)
	limit := utils.ClampInt(utils.AtoiDefault(c.Query("limit"), 12), 1, 50)

	books, err := h.bookSvc.Trending(c.Request.Context(), days, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if books == nil {
		books = []domain.Book{}
	}
	ok(c, http.StatusOK, BooksResponse{Books: books})
}

// GetCart godoc
// @ID          getCart
// @Summary     Show my cart
// @Description Lists the lines added through confirmed actions.
// @Tags        Cart
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object}  handlers.CartResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cart [get]
func (h *Handlers) GetCart(c *gin.Context) {
	items, err := h.cartSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	ok(c, http.StatusOK, CartResponse{Items: items})
}
