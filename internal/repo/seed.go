// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file seeds a small demo catalog for local runs.
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/extract"
)

type seedBook struct {
	vi, en, author string
	price          int64
	orders         int
	reviews        int
	year           int
	cats           []string
}

var seedCategories = []string{
	"Văn học", "Trinh thám", "Kinh tế", "Kỹ năng sống", "Thiếu nhi", "Khoa học", "Lịch sử", "Fantasy",
}

var seedBooks = []seedBook{
	{"Nhà Giả Kim", "The Alchemist", "Paulo Coelho", 79000, 950, 410, 1988, []string{"Văn học"}},
	{"Đắc Nhân Tâm", "How to Win Friends and Influence People", "Dale Carnegie", 86000, 1200, 620, 1936, []string{"Kỹ năng sống"}},
	{"Sherlock Holmes Toàn Tập", "The Complete Sherlock Holmes", "Arthur Conan Doyle", 320000, 310, 150, 1927, []string{"Trinh thám", "Văn học"}},
	{"Án Mạng Trên Chuyến Tàu Tốc Hành Phương Đông", "Murder on the Orient Express", "Agatha Christie", 112000, 270, 98, 1934, []string{"Trinh thám"}},
	{"Cha Giàu Cha Nghèo", "Rich Dad Poor Dad", "Robert Kiyosaki", 95000, 800, 300, 1997, []string{"Kinh tế", "Kỹ năng sống"}},
	{"Nhà Đầu Tư Thông Minh", "The Intelligent Investor", "Benjamin Graham", 189000, 420, 170, 1949, []string{"Kinh tế"}},
	{"Dế Mèn Phiêu Lưu Ký", "", "Tô Hoài", 45000, 700, 260, 1941, []string{"Thiếu nhi", "Văn học"}},
	{"Hoàng Tử Bé", "The Little Prince", "Antoine de Saint-Exupéry", 68000, 880, 390, 1943, []string{"Thiếu nhi", "Văn học"}},
	{"Lược Sử Thời Gian", "A Brief History of Time", "Stephen Hawking", 125000, 360, 140, 1988, []string{"Khoa học"}},
	{"Sapiens: Lược Sử Loài Người", "Sapiens: A Brief History of Humankind", "Yuval Noah Harari", 209000, 640, 280, 2011, []string{"Lịch sử", "Khoa học"}},
	{"Harry Potter và Hòn Đá Phù Thủy", "Harry Potter and the Philosopher's Stone", "J. K. Rowling", 150000, 1100, 540, 1997, []string{"Fantasy", "Thiếu nhi"}},
	{"Chúa Tể Những Chiếc Nhẫn", "The Lord of the Rings", "J. R. R. Tolkien", 450000, 380, 210, 1954, []string{"Fantasy", "Văn học"}},
}

// SearchText builds the folded text keyword search runs against.
func SearchText(b *domain.Book) string {
	return extract.Fold(strings.Join([]string{b.TitleVi, b.TitleEn, b.Author}, " "))
}

// SeedCatalog inserts the demo categories, books, recent order lines and a
// welcome coupon. It is a no-op when the catalog already has books.
func SeedCatalog(ctx context.Context, db *gorm.DB) (int, error) {
	n, err := CountBooks(ctx, db)
	if err != nil || n > 0 {
		return 0, err
	}

	now := time.Now().UTC()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats := make(map[string]domain.Category, len(seedCategories))
		for _, name := range seedCategories {
			c := domain.Category{ID: uuid.NewString(), Name: name, NameFolded: extract.Fold(name), CreatedAt: now}
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			cats[name] = c
		}

		for i, sb := range seedBooks {
			published := time.Date(sb.year, time.January, 1, 0, 0, 0, 0, time.UTC)
			b := domain.Book{
				ID:          uuid.NewString(),
				TitleVi:     sb.vi,
				TitleEn:     sb.en,
				Author:      sb.author,
				Price:       decimal.NewFromInt(sb.price),
				Images:      []string{fmt.Sprintf("https://picsum.photos/seed/book-%d/300/450", i+1)},
				PublishedAt: &published,
				OrderCount:  sb.orders,
				ReviewCount: sb.reviews,
				CreatedAt:   now.Add(-time.Duration(len(seedBooks)-i) * time.Hour),
			}
			b.SearchText = SearchText(&b)
			for _, name := range sb.cats {
				b.Categories = append(b.Categories, cats[name])
			}
			if err := tx.Omit("Categories.*").Create(&b).Error; err != nil {
				return err
			}

			// a few recent sales so trending has a window to rank
			if i%3 == 0 {
				line := domain.OrderLine{ID: uuid.NewString(), BookID: b.ID, Quantity: 1 + i, CreatedAt: now.AddDate(0, 0, -i)}
				if err := tx.Create(&line).Error; err != nil {
					return err
				}
			}
		}

		welcome := domain.Coupon{
			ID:                uuid.NewString(),
			Code:              "WELCOME10",
			Type:              domain.CouponPercentage,
			Value:             decimal.NewFromInt(10),
			MaxDiscountAmount: decimal.NewNullDecimal(decimal.NewFromInt(50000)),
			MinSubtotal:       decimal.NewNullDecimal(decimal.NewFromInt(100000)),
			IsActive:          true,
		}
		return tx.Create(&welcome).Error
	})
	if err != nil {
		return 0, err
	}
	return len(seedBooks), nil
}
