package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/extract"
	"github.com/tbourn/go-bookshop-assistant/internal/repo"
)

// Catalog is the read side of the book catalog the orchestrator depends on.
type Catalog interface {
	// SearchByCategory returns books in any of the categories within the
	// price range, most popular first.
	SearchByCategory(ctx context.Context, categoryIDs []string, price extract.PriceRange, limit int) ([]domain.Book, error)
	// SearchByKeyword returns one page of keyword hits; an empty keyword
	// yields the catalog-default page.
	SearchByKeyword(ctx context.Context, keyword string, page, pageSize int) ([]domain.Book, error)
	// Trending returns the best sellers of the last days.
	Trending(ctx context.Context, days, limit int) ([]domain.Book, error)
	// MapCategoryNames resolves free-form genre names to stored categories.
	MapCategoryNames(ctx context.Context, names []string) ([]domain.Category, error)
}

// GormCatalog implements Catalog on top of the repo package.
type GormCatalog struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewGormCatalog returns a Catalog backed by db.
func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{DB: db, Now: time.Now}
}

func (c *GormCatalog) SearchByCategory(ctx context.Context, categoryIDs []string, price extract.PriceRange, limit int) ([]domain.Book, error) {
	return repo.SearchBooksByCategory(ctx, c.DB, categoryIDs, price.Min, price.Max, limit)
}

func (c *GormCatalog) SearchByKeyword(ctx context.Context, keyword string, page, pageSize int) ([]domain.Book, error) {
	return repo.SearchBooksByKeyword(ctx, c.DB, keyword, page, pageSize)
}

func (c *GormCatalog) Trending(ctx context.Context, days, limit int) ([]domain.Book, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return repo.TrendingBooks(ctx, c.DB, days, limit, now().UTC())
}

func (c *GormCatalog) MapCategoryNames(ctx context.Context, names []string) ([]domain.Category, error) {
	return repo.MapCategoryNamesToIDs(ctx, c.DB, names)
}
