// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the read-side catalog queries the chat
// assistant relies on: category search, keyword search, trending books and
// fuzzy category-name resolution.
//
// Prices are filtered as float64 arguments so the same query works against
// SQLite NUMERIC affinity and PostgreSQL numeric columns.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/extract"
	"github.com/tbourn/go-bookshop-assistant/internal/search"
)

// maxKeywordCandidates bounds how many LIKE-prefiltered rows are re-ranked.
const maxKeywordCandidates = 200

func priceScope(minPrice, maxPrice *decimal.Decimal) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if minPrice != nil {
			q = q.Where("books.price >= ?", minPrice.InexactFloat64())
		}
		if maxPrice != nil {
			q = q.Where("books.price <= ?", maxPrice.InexactFloat64())
		}
		return q
	}
}

// SearchBooksByCategory returns books in any of categoryIDs within the
// optional price bounds, most ordered first, then most reviewed, then most
// recently published.
func SearchBooksByCategory(ctx context.Context, db *gorm.DB, categoryIDs []string, minPrice, maxPrice *decimal.Decimal, limit int) ([]domain.Book, error) {
	out := []domain.Book{}
	if len(categoryIDs) == 0 {
		return out, nil
	}
	sub := db.Table("book_categories").Select("book_id").Where("category_id IN ?", categoryIDs)
	q := db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("books.id IN (?)", sub).
		Scopes(priceScope(minPrice, maxPrice)).
		Order("books.order_count DESC").
		Order("books.review_count DESC").
		Order("books.published_at IS NULL").
		Order("books.published_at DESC").
		Order("books.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListBooksPage returns a page of the catalog in its default order
// (newest first, then id).
func ListBooksPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Book, error) {
	out := []domain.Book{}
	err := db.WithContext(ctx).
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SearchBooksByKeyword searches titles and authors. An empty keyword returns
// the default catalog page. Otherwise rows sharing any folded token are
// prefiltered with LIKE and re-ranked by token overlap with the keyword.
func SearchBooksByKeyword(ctx context.Context, db *gorm.DB, keyword string, page, pageSize int) ([]domain.Book, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if strings.TrimSpace(keyword) == "" {
		return ListBooksPage(ctx, db, offset, pageSize)
	}

	tokens := search.Tokens(keyword)
	if len(tokens) == 0 {
		return []domain.Book{}, nil
	}

	q := db.WithContext(ctx).Model(&domain.Book{})
	or := db.Where("search_text LIKE ?", "%"+tokens[0]+"%")
	for _, tok := range tokens[1:] {
		or = or.Or("search_text LIKE ?", "%"+tok+"%")
	}
	var candidates []domain.Book
	if err := q.Where(or).Order("order_count DESC, id ASC").Limit(maxKeywordCandidates).Find(&candidates).Error; err != nil {
		return nil, err
	}

	docs := make([]search.Doc, len(candidates))
	byID := make(map[string]domain.Book, len(candidates))
	for i, b := range candidates {
		docs[i] = search.Doc{ID: b.ID, Text: b.SearchText}
		byID[b.ID] = b
	}
	ranked := search.NewIndex(docs).TopK(keyword, 0)

	out := []domain.Book{}
	for i := offset; i < len(ranked) && len(out) < pageSize; i++ {
		out = append(out, byID[ranked[i].ID])
	}
	return out, nil
}

// TrendingBooks ranks books by units sold since now-days. When the window has
// fewer than limit books, the rest is filled by lifetime order count so the
// caller always has suggestions while the catalog is non-empty.
func TrendingBooks(ctx context.Context, db *gorm.DB, days, limit int, now time.Time) ([]domain.Book, error) {
	if days <= 0 {
		days = 30
	}
	if limit <= 0 {
		limit = 8
	}
	since := now.UTC().AddDate(0, 0, -days)

	var rows []struct {
		BookID string
		Units  int64
	}
	err := db.WithContext(ctx).
		Model(&domain.OrderLine{}).
		Select("book_id, SUM(quantity) AS units").
		Where("created_at >= ?", since).
		Group("book_id").
		Order("units DESC, book_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.BookID)
	}
	out, err := booksInOrder(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	if len(out) >= limit {
		return out, nil
	}

	var filler []domain.Book
	q := db.WithContext(ctx).Order("order_count DESC, review_count DESC, id ASC").Limit(limit - len(out))
	if len(ids) > 0 {
		q = q.Where("id NOT IN ?", ids)
	}
	if err := q.Find(&filler).Error; err != nil {
		return nil, err
	}
	return append(out, filler...), nil
}

// booksInOrder loads books by id and returns them in the order of ids,
// skipping ids that no longer exist.
func booksInOrder(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Book, error) {
	out := []domain.Book{}
	if len(ids) == 0 {
		return out, nil
	}
	var found []domain.Book
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Book, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// GetBook fetches one book or ErrNotFound.
func GetBook(ctx context.Context, db *gorm.DB, id string) (*domain.Book, error) {
	var b domain.Book
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// CountBooks returns the catalog size.
func CountBooks(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Book{}).Count(&n).Error
	return n, err
}

// ListCategories returns every category ordered by name.
func ListCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	out := []domain.Category{}
	err := db.WithContext(ctx).Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

// MapCategoryNamesToIDs resolves free-form names to categories. A name
// matches a category when either folded string contains the other; the first
// category in name order wins for each input, and results are unique by id.
func MapCategoryNamesToIDs(ctx context.Context, db *gorm.DB, names []string) ([]domain.Category, error) {
	out := []domain.Category{}
	if len(names) == 0 {
		return out, nil
	}
	all, err := ListCategories(ctx, db)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		for _, c := range all {
			folded := c.NameFolded
			if folded == "" {
				folded = extract.Fold(c.Name)
			}
			if !extract.FuzzyTitleMatch(name, folded) {
				continue
			}
			if _, dup := seen[c.ID]; !dup {
				seen[c.ID] = struct{}{}
				out = append(out, c)
			}
			break
		}
	}
	return out, nil
}
