// Package domain defines the persistence models for the bookshop catalog,
// chat sessions, pending cart actions and coupons. These types are mapped
// with GORM and shared across the repository and service layers.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocalizedText is a bilingual string. Vi is always present; En is optional.
type LocalizedText struct {
	Vi string `json:"vi"`
	En string `json:"en,omitempty"`
}

// Book is a catalog entry.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - TitleVi / TitleEn: bilingual title; TitleEn may be empty.
//   - Price: unit price in VND.
//   - Images: image URLs, stored as a JSON array.
//   - PublishedAt: optional publication date (recency tiebreak).
//   - OrderCount / ReviewCount: popularity counters maintained by the shop.
//   - SearchText: folded title + author used for keyword lookups.
//   - Categories: many-to-many through book_categories.
type Book struct {
	ID          string          `json:"id"           gorm:"type:char(36);primaryKey"`
	TitleVi     string          `json:"title_vi"     gorm:"type:varchar(255);not null"`
	TitleEn     string          `json:"title_en"     gorm:"type:varchar(255)"`
	Author      string          `json:"author"       gorm:"type:varchar(255)"`
	Price       decimal.Decimal `json:"price"        gorm:"type:decimal(18,2);not null;index"`
	Images      []string        `json:"images"       gorm:"type:text;serializer:json"`
	PublishedAt *time.Time      `json:"published_at" gorm:"index"`
	OrderCount  int             `json:"order_count"  gorm:"not null;index"`
	ReviewCount int             `json:"review_count" gorm:"not null"`
	SearchText  string          `json:"-"            gorm:"type:text;not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Categories []Category `json:"categories,omitempty" gorm:"many2many:book_categories;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for Book.
func (Book) TableName() string { return "books" }

// Summary projects a Book to the shape shown in chat replies.
func (b Book) Summary() BookSummary {
	images := b.Images
	if images == nil {
		images = []string{}
	}
	return BookSummary{
		ID:     b.ID,
		Title:  LocalizedText{Vi: b.TitleVi, En: b.TitleEn},
		Price:  b.Price,
		Images: images,
	}
}

// BookSummary is the compact book shape used in recommendations and replies.
type BookSummary struct {
	ID     string          `json:"id"`
	Title  LocalizedText   `json:"title"`
	Price  decimal.Decimal `json:"price"`
	Images []string        `json:"images"`
}

// Category is a catalog genre. NameFolded is the lowercase, accent-free form
// of Name used for fuzzy matching.
type Category struct {
	ID         string    `json:"id"   gorm:"type:char(36);primaryKey"`
	Name       string    `json:"name" gorm:"type:varchar(128);not null;uniqueIndex"`
	NameFolded string    `json:"-"    gorm:"type:varchar(128);not null;index"`
	CreatedAt  time.Time `json:"-"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// OrderLine is one sold line item. Trending books are ranked by units sold
// over a recent window of order lines.
type OrderLine struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	BookID    string    `json:"book_id"    gorm:"type:char(36);not null;index"`
	Quantity  int       `json:"quantity"   gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	Book Book `json:"-" gorm:"foreignKey:BookID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for OrderLine.
func (OrderLine) TableName() string { return "order_lines" }

// CartItem is a line in a user's cart. (user_id, book_id) is unique; adding
// the same book again increases Quantity.
type CartItem struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"  gorm:"type:varchar(64);not null;uniqueIndex:ux_cart_user_book,priority:1"`
	BookID    string    `json:"book_id"  gorm:"type:char(36);not null;uniqueIndex:ux_cart_user_book,priority:2"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Book Book `json:"-" gorm:"foreignKey:BookID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CartItem.
func (CartItem) TableName() string { return "cart_items" }
