package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/extract"
	"github.com/tbourn/go-bookshop-assistant/internal/intent"
	"github.com/tbourn/go-bookshop-assistant/internal/memory"
)

// ----- Fakes -----

type fakeCatalog struct {
	byCategory func(ids []string, price extract.PriceRange, limit int) ([]domain.Book, error)
	byKeyword  func(kw string, page, size int) ([]domain.Book, error)
	trending   func(days, limit int) ([]domain.Book, error)
	mapNames   func(names []string) ([]domain.Category, error)

	keywords []string
}

func (f *fakeCatalog) SearchByCategory(_ context.Context, ids []string, price extract.PriceRange, limit int) ([]domain.Book, error) {
	if f.byCategory == nil {
		return nil, nil
	}
	return f.byCategory(ids, price, limit)
}

func (f *fakeCatalog) SearchByKeyword(_ context.Context, kw string, page, size int) ([]domain.Book, error) {
	f.keywords = append(f.keywords, kw)
	if f.byKeyword == nil {
		return nil, nil
	}
	return f.byKeyword(kw, page, size)
}

func (f *fakeCatalog) Trending(_ context.Context, days, limit int) ([]domain.Book, error) {
	if f.trending == nil {
		return nil, nil
	}
	return f.trending(days, limit)
}

func (f *fakeCatalog) MapCategoryNames(_ context.Context, names []string) ([]domain.Category, error) {
	if f.mapNames == nil {
		return nil, nil
	}
	return f.mapNames(names)
}

func fixed(label string, conf float64) intent.Classifier {
	return intent.ClassifierFunc(func(context.Context, string) (intent.Prediction, error) {
		return intent.Prediction{Label: label, Confidence: conf}, nil
	})
}

func book(id, title string, price int64) domain.Book {
	return domain.Book{ID: id, TitleVi: title, Price: decimal.NewFromInt(price)}
}

func summaries(books ...domain.Book) []domain.BookSummary {
	out := make([]domain.BookSummary, len(books))
	for i, b := range books {
		out[i] = b.Summary()
	}
	return out
}

func newTestOrchestrator(c intent.Classifier, cat Catalog) (*Orchestrator, *memory.LRUStore, *Metrics) {
	mem := memory.NewLRUStore(100, time.Hour)
	m := NewMetrics(prometheus.NewRegistry())
	o := NewOrchestrator(c, cat, mem, m)
	n := 0
	o.NewID = func() string {
		n++
		return "act-" + string(rune('0'+n))
	}
	return o, mem, m
}

var (
	bookA = book("a", "Nhà Giả Kim", 79000)
	bookB = book("b", "Đắc Nhân Tâm", 86000)
	bookC = book("c", "Sapiens Lược Sử Loài Người", 189000)
)

// ----- Dispatch -----

func TestProcessTurn_CannedReplies(t *testing.T) {
	cases := map[string]string{
		"confirm_yes": replyConfirmYes,
		"confirm_no":  replyConfirmNo,
		"greeting":    replyGreeting,
		"goodbye":     replyGoodbye,
	}
	for label, want := range cases {
		o, _, _ := newTestOrchestrator(fixed(label, 0.95), &fakeCatalog{})
		res, err := o.ProcessTurn(context.Background(), "s1", "ok")
		if err != nil {
			t.Fatalf("%s: %v", label, err)
		}
		if res.Text != want || res.Intent != label || res.Confidence != 0.95 {
			t.Fatalf("%s: got %+v", label, res)
		}
		if len(res.Books) != 0 || len(res.Actions) != 0 {
			t.Fatalf("%s: canned replies carry no books or actions", label)
		}
	}
}

func TestProcessTurn_UnknownLabelFallsBackAttenuated(t *testing.T) {
	cat := &fakeCatalog{
		byKeyword: func(string, int, int) ([]domain.Book, error) {
			return []domain.Book{bookA, bookB}, nil
		},
	}
	o, mem, _ := newTestOrchestrator(fixed("unknown_xyz", 0.9), cat)

	res, err := o.ProcessTurn(context.Background(), "s1", "hôm nay trời đẹp")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Intent != "recommend" {
		t.Fatalf("intent = %q; want recommend", res.Intent)
	}
	if math.Abs(res.Confidence-0.72) > 1e-9 {
		t.Fatalf("confidence = %v; want 0.72", res.Confidence)
	}
	if len(res.Books) != 2 || len(mem.Get("s1")) != 2 {
		t.Fatalf("recommendations not returned/remembered: %+v", res.Books)
	}
}

func TestProcessTurn_LowConfidenceOverride(t *testing.T) {
	cat := &fakeCatalog{
		byKeyword: func(string, int, int) ([]domain.Book, error) { return []domain.Book{bookA}, nil },
	}
	o, _, m := newTestOrchestrator(fixed("goodbye", 0.3), cat)

	res, err := o.ProcessTurn(context.Background(), "s1", "Gợi ý cho tôi vài cuốn hay")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Intent != "recommend" || res.Confidence != OverrideThreshold {
		t.Fatalf("expected override to recommend@0.55, got %s@%v", res.Intent, res.Confidence)
	}
	if got := testutil.ToFloat64(m.Overrides); got != 1 {
		t.Fatalf("overrides counter = %v; want 1", got)
	}
	if got := testutil.ToFloat64(m.Intents.WithLabelValues("recommend")); got != 1 {
		t.Fatalf("intent counter = %v; want 1", got)
	}
}

func TestProcessTurn_NoOverrideWhenConfident(t *testing.T) {
	o, _, _ := newTestOrchestrator(fixed("greeting", 0.8), &fakeCatalog{})
	res, _ := o.ProcessTurn(context.Background(), "s1", "chào shop, gợi ý giúp mình")
	if res.Intent != "greeting" {
		t.Fatalf("confident classification must not be overridden, got %s", res.Intent)
	}
}

func TestProcessTurn_ClassifierError(t *testing.T) {
	boom := errors.New("model down")
	c := intent.ClassifierFunc(func(context.Context, string) (intent.Prediction, error) {
		return intent.Prediction{}, boom
	})
	o, _, _ := newTestOrchestrator(c, &fakeCatalog{})
	if _, err := o.ProcessTurn(context.Background(), "s1", "hi"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped classifier error, got %v", err)
	}
}

// ----- Recommendation pipeline -----

func TestRecommend_ByCategoryWithPrice(t *testing.T) {
	var gotIDs []string
	var gotPrice extract.PriceRange
	cat := &fakeCatalog{
		mapNames: func(names []string) ([]domain.Category, error) {
			return []domain.Category{{ID: "cat-econ", Name: "Kinh tế"}}, nil
		},
		byCategory: func(ids []string, price extract.PriceRange, limit int) ([]domain.Book, error) {
			gotIDs, gotPrice = ids, price
			if limit != recommendLimit {
				t.Fatalf("limit = %d", limit)
			}
			return []domain.Book{bookB}, nil
		},
	}
	o, mem, _ := newTestOrchestrator(fixed("recommend", 0.9), cat)

	res, err := o.ProcessTurn(context.Background(), "s1", "gợi ý sách kinh tế khoảng 100k")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if len(gotIDs) != 1 || gotIDs[0] != "cat-econ" {
		t.Fatalf("category ids = %v", gotIDs)
	}
	if gotPrice.Min == nil || !gotPrice.Min.Equal(decimal.NewFromInt(80000)) {
		t.Fatalf("price range not forwarded: %+v", gotPrice)
	}
	want := "Mình gợi ý vài cuốn theo thể loại Kinh tế trong khoảng 80.000–120.000đ:"
	if res.Text != want {
		t.Fatalf("text = %q; want %q", res.Text, want)
	}
	if got := mem.Get("s1"); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("memory = %+v", got)
	}
}

func TestRecommend_FallbackPageFilteredAndTruncated(t *testing.T) {
	var page []domain.Book
	for i := 0; i < 12; i++ {
		page = append(page, book(string(rune('a'+i)), "B", int64(50000+i*10000)))
	}
	var gotKW string
	var gotSize int
	cat := &fakeCatalog{
		byKeyword: func(kw string, _ int, size int) ([]domain.Book, error) {
			gotKW, gotSize = kw, size
			return page, nil
		},
	}
	o, _, _ := newTestOrchestrator(fixed("refine", 0.9), cat)

	// no price: first 8 of the page
	res, _ := o.ProcessTurn(context.Background(), "s1", "có gì hay không")
	if gotKW != "" || gotSize != fallbackPageSize {
		t.Fatalf("fallback page query = (%q, %d)", gotKW, gotSize)
	}
	if len(res.Books) != recommendLimit || res.Books[0].ID != "a" {
		t.Fatalf("expected first 8 in catalog order, got %d", len(res.Books))
	}
	if res.Intent != "refine" || !strings.HasSuffix(res.Text, "phù hợp:") {
		t.Fatalf("unexpected reply %+v", res)
	}

	// 100k => [80000, 120000] keeps 80k..120k
	res, _ = o.ProcessTurn(context.Background(), "s1", "tầm 100k")
	if len(res.Books) != 5 {
		t.Fatalf("price filter kept %d books; want 5", len(res.Books))
	}
	for _, b := range res.Books {
		if b.Price.LessThan(decimal.NewFromInt(80000)) || b.Price.GreaterThan(decimal.NewFromInt(120000)) {
			t.Fatalf("book %s outside range: %s", b.ID, b.Price)
		}
	}
}

func TestRecommend_EmptyFallsBackToTrending(t *testing.T) {
	var days, limit int
	cat := &fakeCatalog{
		mapNames: func([]string) ([]domain.Category, error) {
			return []domain.Category{{ID: "x", Name: "Trinh thám"}}, nil
		},
		trending: func(d, l int) ([]domain.Book, error) {
			days, limit = d, l
			return []domain.Book{bookC}, nil
		},
	}
	o, mem, _ := newTestOrchestrator(fixed("recommend", 0.9), cat)

	res, err := o.ProcessTurn(context.Background(), "s1", "sách trinh thám dưới 10k")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if days != trendingDays || limit != recommendLimit {
		t.Fatalf("trending called with (%d, %d)", days, limit)
	}
	if !strings.HasPrefix(res.Text, "Mình chưa tìm thấy sách theo thể loại Trinh thám") {
		t.Fatalf("text = %q", res.Text)
	}
	if got := mem.Get("s1"); len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("trending books must be remembered, got %+v", got)
	}
}

func TestRecommend_CatalogError(t *testing.T) {
	boom := errors.New("db gone")
	cat := &fakeCatalog{byKeyword: func(string, int, int) ([]domain.Book, error) { return nil, boom }}
	o, _, _ := newTestOrchestrator(fixed("recommend", 0.9), cat)
	if _, err := o.ProcessTurn(context.Background(), "s1", "có gì hay"); !errors.Is(err, boom) {
		t.Fatalf("expected catalog error, got %v", err)
	}
}

func TestRecommendText_Templates(t *testing.T) {
	lo, hi := decimal.NewFromInt(100000), decimal.NewFromInt(200000)
	cases := []struct {
		found bool
		price extract.PriceRange
		want  string
	}{
		{true, extract.PriceRange{Min: &lo, Max: &hi}, "Mình gợi ý vài cuốn X trong khoảng 100.000–200.000đ:"},
		{true, extract.PriceRange{Min: &lo}, "Mình gợi ý vài cuốn X từ khoảng 100.000đ:"},
		{true, extract.PriceRange{Max: &hi}, "Mình gợi ý vài cuốn X dưới 200.000đ:"},
		{true, extract.PriceRange{}, "Mình gợi ý vài cuốn X phù hợp:"},
		{false, extract.PriceRange{Max: &hi}, "Mình chưa tìm thấy sách X dưới 200.000đ, nhưng đây là vài cuốn đang được quan tâm:"},
	}
	for _, tc := range cases {
		if got := recommendText(tc.found, " X", tc.price); got != tc.want {
			t.Fatalf("recommendText = %q; want %q", got, tc.want)
		}
	}
}

// ----- Cart-action pipeline -----

func TestAddToCart_IndexRefsWithEachQuantity(t *testing.T) {
	o, mem, m := newTestOrchestrator(fixed("add_to_cart", 0.9), &fakeCatalog{})
	mem.Save("s1", summaries(bookA, bookB, bookC))

	res, err := o.ProcessTurn(context.Background(), "s1", "thêm cuốn 1 và cuốn 3, mỗi cuốn 2")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if len(res.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %+v", res.Actions)
	}
	want := []domain.AddToCartPayload{{BookID: "a", Quantity: 2}, {BookID: "c", Quantity: 2}}
	for i, a := range res.Actions {
		if a.Type != domain.ActionAddToCart || a.Payload != want[i] || a.ID == "" {
			t.Fatalf("action %d = %+v; want %+v", i, a, want[i])
		}
	}
	if !strings.Contains(res.Text, "- 2 × Nhà Giả Kim") || !strings.HasSuffix(res.Text, "Xác nhận nhé?") {
		t.Fatalf("text = %q", res.Text)
	}
	if got := testutil.ToFloat64(m.CartActions); got != 2 {
		t.Fatalf("cart actions counter = %v", got)
	}
}

func TestAddToCart_IndexAndTitleOfSameBookMerge(t *testing.T) {
	o, mem, _ := newTestOrchestrator(fixed("add_to_cart", 0.9), &fakeCatalog{})
	mem.Save("s1", summaries(bookA, bookB))

	res, _ := o.ProcessTurn(context.Background(), "s1", `thêm cuốn 1 và "nhà giả kim" x2`)
	if len(res.Actions) != 1 {
		t.Fatalf("expected one merged action, got %+v", res.Actions)
	}
	if p := res.Actions[0].Payload; p.BookID != "a" || p.Quantity != 3 {
		t.Fatalf("merged payload = %+v; want a×3", p)
	}
}

func TestAddToCart_AllAndOutOfRange(t *testing.T) {
	o, mem, _ := newTestOrchestrator(fixed("add_to_cart", 0.9), &fakeCatalog{})
	mem.Save("s1", summaries(bookA, bookB))

	res, _ := o.ProcessTurn(context.Background(), "s1", "lấy tất cả")
	if len(res.Actions) != 2 || res.Actions[0].Payload.Quantity != 1 {
		t.Fatalf("all: %+v", res.Actions)
	}

	// index 9 does not exist and nothing else resolves
	res, _ = o.ProcessTurn(context.Background(), "s1", "thêm cuốn 9")
	if len(res.Actions) != 0 || res.Text != replyNoCartHit {
		t.Fatalf("out of range: %+v", res)
	}
}

func TestAddToCart_NoMatchAsksForClarification(t *testing.T) {
	cat := &fakeCatalog{}
	o, _, _ := newTestOrchestrator(fixed("add_to_cart", 0.9), cat)

	res, err := o.ProcessTurn(context.Background(), "s1", "thêm Sherlock Holmes vào giỏ")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Text != replyNoCartHit || len(res.Actions) != 0 {
		t.Fatalf("expected clarification, got %+v", res)
	}
	if len(cat.keywords) == 0 {
		t.Fatalf("catalog keyword fallback was not attempted")
	}
}

func TestAddToCart_KeywordFallbackTakesFirstHit(t *testing.T) {
	cat := &fakeCatalog{
		byKeyword: func(kw string, _ int, size int) ([]domain.Book, error) {
			if kw == "" || size != cartSearchSize {
				t.Fatalf("unexpected search (%q, %d)", kw, size)
			}
			return []domain.Book{bookB, bookA}, nil
		},
	}
	o, _, _ := newTestOrchestrator(fixed("add_to_cart", 0.9), cat)

	res, _ := o.ProcessTurn(context.Background(), "s1", "cho mình 3 quyển Đắc Nhân Tâm vào giỏ")
	if len(res.Actions) != 1 {
		t.Fatalf("expected one action, got %+v", res.Actions)
	}
	if p := res.Actions[0].Payload; p.BookID != "b" || p.Quantity != 3 {
		t.Fatalf("payload = %+v; want b×3", p)
	}
	if len(res.Books) != 1 || res.Books[0].ID != "b" {
		t.Fatalf("books = %+v", res.Books)
	}
}

// ----- Per-session ordering -----

func TestProcessTurn_SerializesSameSession(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	c := intent.ClassifierFunc(func(context.Context, string) (intent.Prediction, error) {
		entered <- struct{}{}
		<-release
		return intent.Prediction{Label: "greeting", Confidence: 1}, nil
	})
	o, _, _ := newTestOrchestrator(c, &fakeCatalog{})

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, _ = o.ProcessTurn(context.Background(), "same", "hi")
			done <- struct{}{}
		}()
	}

	<-entered
	select {
	case <-entered:
		t.Fatalf("second turn of the same session ran concurrently")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-done
	<-done
}
