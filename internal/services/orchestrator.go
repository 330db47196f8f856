// Package services – Orchestrator
//
// The Orchestrator turns one chat message into one ChatBotResponse. It
// classifies the text, dispatches on the resolved intent and either
// recommends books (remembering them for the session) or proposes add-to-cart
// actions that reference what was recommended before. Actions are only
// proposals; executing them is ActionService's job after the user confirms.
//
// Turns of one session run one at a time (memory.SessionLocker), so a cart
// request always sees the recommendation list of the turn before it.

package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-bookshop-assistant/internal/coupon"
	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/extract"
	"github.com/tbourn/go-bookshop-assistant/internal/intent"
	"github.com/tbourn/go-bookshop-assistant/internal/memory"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// OverrideThreshold is the confidence under which recommend phrasing wins
	// over the classifier.
	OverrideThreshold = 0.55
	// UnknownAttenuation scales the confidence of turns that fall back to
	// recommend because their label is unknown.
	UnknownAttenuation = 0.8

	recommendLimit   = 8
	fallbackPageSize = 40
	trendingDays     = 30
	cartSearchSize   = 20
)

// Canned replies.
const (
	replyConfirmYes = "Đã xác nhận 👍"
	replyConfirmNo  = "Đã hủy thao tác ✋"
	replyGreeting   = "Chào bạn 👋. Bạn muốn tìm sách thể loại nào và khoảng giá bao nhiêu?"
	replyGoodbye    = "Cảm ơn bạn đã ghé shop. Hẹn gặp lại! 👋"
	replyNoCartHit  = "Mình chưa tìm ra sách trùng khớp để thêm giỏ. Bạn mô tả rõ tên sách hơn nhé?"

	// ApologyText is what transports send when a turn fails.
	ApologyText = "Đã xảy ra lỗi nội bộ khi xử lý yêu cầu. Vui lòng thử lại sau."
)

// Orchestrator runs chat turns.
type Orchestrator struct {
	Classifier intent.Classifier
	Catalog    Catalog
	Memory     memory.Store
	Locker     *memory.SessionLocker
	Metrics    *Metrics

	// NewID mints action ids; uuid.NewString when nil.
	NewID func() string
}

// NewOrchestrator wires an Orchestrator with a fresh session locker.
func NewOrchestrator(c intent.Classifier, cat Catalog, mem memory.Store, m *Metrics) *Orchestrator {
	return &Orchestrator{
		Classifier: c,
		Catalog:    cat,
		Memory:     mem,
		Locker:     memory.NewSessionLocker(),
		Metrics:    m,
	}
}

// lock serializes turns of one session. It is a no-op without a Locker.
func (o *Orchestrator) lock(sessionID string) func() {
	if o.Locker == nil {
		return func() {}
	}
	return o.Locker.Lock(sessionID)
}

// ProcessTurn answers one user message. Malformed or nonsensical text never
// fails; errors come only from the classifier or the catalog.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, text string) (domain.ChatBotResponse, error) {
	unlock := o.lock(sessionID)
	defer unlock()
	return o.processTurn(ctx, sessionID, text)
}

// processTurn is ProcessTurn for callers already holding the session lock.
func (o *Orchestrator) processTurn(ctx context.Context, sessionID, text string) (domain.ChatBotResponse, error) {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "ProcessTurn",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	pred, err := o.Classifier.Classify(ctx, text)
	if err != nil {
		span.RecordError(err)
		return domain.ChatBotResponse{}, fmt.Errorf("classify: %w", err)
	}
	in, conf := pred.Intent(), pred.Confidence

	if conf < OverrideThreshold && extract.LooksLikeRecommend(text) {
		if in != intent.Recommend {
			o.Metrics.override()
		}
		in, conf = intent.Recommend, math.Max(conf, OverrideThreshold)
	}
	span.SetAttributes(
		attribute.String("intent.label", pred.Label),
		attribute.String("intent.resolved", in.String()),
		attribute.Float64("intent.confidence", conf),
	)

	var res domain.ChatBotResponse
	switch in {
	case intent.Recommend, intent.Refine:
		res, err = o.recommend(ctx, sessionID, text)
	case intent.AddToCart:
		res, err = o.addToCart(ctx, sessionID, text)
	case intent.ConfirmYes:
		res = domain.ChatBotResponse{Text: replyConfirmYes}
	case intent.ConfirmNo:
		res = domain.ChatBotResponse{Text: replyConfirmNo}
	case intent.Greeting:
		res = domain.ChatBotResponse{Text: replyGreeting}
	case intent.Goodbye:
		res = domain.ChatBotResponse{Text: replyGoodbye}
	default:
		log.Ctx(ctx).Debug().Str("label", pred.Label).Msg("unknown intent, falling back to recommend")
		in, conf = intent.Recommend, conf*UnknownAttenuation
		res, err = o.recommend(ctx, sessionID, text)
	}
	if err != nil {
		span.RecordError(err)
		return domain.ChatBotResponse{}, err
	}

	res.Intent, res.Confidence = in.String(), conf
	o.Metrics.intent(res.Intent)
	o.Metrics.cartActions(len(res.Actions))
	return res, nil
}

// recommend runs the recommendation pipeline and remembers what it showed.
func (o *Orchestrator) recommend(ctx context.Context, sessionID, text string) (domain.ChatBotResponse, error) {
	price := extract.ExtractPriceRange(text)

	var cats []domain.Category
	if names := extract.ExtractCategoryNames(text); len(names) > 0 {
		var err error
		if cats, err = o.Catalog.MapCategoryNames(ctx, names); err != nil {
			return domain.ChatBotResponse{}, fmt.Errorf("map categories: %w", err)
		}
	}

	var books []domain.Book
	if len(cats) > 0 {
		ids := make([]string, len(cats))
		for i, c := range cats {
			ids[i] = c.ID
		}
		var err error
		if books, err = o.Catalog.SearchByCategory(ctx, ids, price, recommendLimit); err != nil {
			return domain.ChatBotResponse{}, fmt.Errorf("search by category: %w", err)
		}
	} else {
		page, err := o.Catalog.SearchByKeyword(ctx, "", 1, fallbackPageSize)
		if err != nil {
			return domain.ChatBotResponse{}, fmt.Errorf("catalog page: %w", err)
		}
		for _, b := range page {
			if len(books) == recommendLimit {
				break
			}
			if price.Contains(b.Price) {
				books = append(books, b)
			}
		}
	}

	found := len(books) > 0
	if !found {
		var err error
		if books, err = o.Catalog.Trending(ctx, trendingDays, recommendLimit); err != nil {
			return domain.ChatBotResponse{}, fmt.Errorf("trending: %w", err)
		}
	}
	if len(books) > recommendLimit {
		books = books[:recommendLimit]
	}

	summaries := make([]domain.BookSummary, len(books))
	for i, b := range books {
		summaries[i] = b.Summary()
	}
	o.Memory.Save(sessionID, summaries)

	return domain.ChatBotResponse{
		Text:  recommendText(found, categoryText(cats), price),
		Books: summaries,
	}, nil
}

func categoryText(cats []domain.Category) string {
	if len(cats) == 0 {
		return ""
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return " theo thể loại " + strings.Join(names, ", ")
}

func recommendText(found bool, cat string, price extract.PriceRange) string {
	var bounds string
	switch {
	case price.Min != nil && price.Max != nil:
		bounds = fmt.Sprintf(" trong khoảng %s–%sđ", coupon.FormatVND(*price.Min), coupon.FormatVND(*price.Max))
	case price.Min != nil:
		bounds = fmt.Sprintf(" từ khoảng %sđ", coupon.FormatVND(*price.Min))
	case price.Max != nil:
		bounds = fmt.Sprintf(" dưới %sđ", coupon.FormatVND(*price.Max))
	}
	if !found {
		return "Mình chưa tìm thấy sách" + cat + bounds + ", nhưng đây là vài cuốn đang được quan tâm:"
	}
	if bounds == "" {
		bounds = " phù hợp"
	}
	return "Mình gợi ý vài cuốn" + cat + bounds + ":"
}

type cartCandidate struct {
	book domain.BookSummary
	qty  int
}

// addToCart resolves the books a cart request points at and proposes one
// action per distinct book.
func (o *Orchestrator) addToCart(ctx context.Context, sessionID, text string) (domain.ChatBotResponse, error) {
	req := extract.ParseCartReference(text)
	recent := o.Memory.Get(sessionID)

	var cands []cartCandidate
	if req.All {
		for _, b := range recent {
			cands = append(cands, cartCandidate{book: b, qty: req.DefaultQuantity()})
		}
	}
	for _, item := range req.Items {
		if item.Index > 0 && item.Index <= len(recent) {
			cands = append(cands, cartCandidate{book: recent[item.Index-1], qty: req.QuantityFor(item)})
		}
	}
	for _, item := range req.Items {
		if item.Title == "" {
			continue
		}
		for _, b := range recent {
			if extract.FuzzyTitleMatch(item.Title, b.Title.Vi) || extract.FuzzyTitleMatch(item.Title, b.Title.En) {
				cands = append(cands, cartCandidate{book: b, qty: req.QuantityFor(item)})
				break
			}
		}
	}

	if len(cands) == 0 {
		qty := extract.ExtractQuantity(text, 1)
		for _, kw := range extract.CartKeywords(text) {
			hits, err := o.Catalog.SearchByKeyword(ctx, kw, 1, cartSearchSize)
			if err != nil {
				return domain.ChatBotResponse{}, fmt.Errorf("search %q: %w", kw, err)
			}
			if len(hits) > 0 {
				cands = append(cands, cartCandidate{book: hits[0].Summary(), qty: qty})
				break
			}
		}
	}
	if len(cands) == 0 {
		return domain.ChatBotResponse{Text: replyNoCartHit}, nil
	}

	merged := mergeCandidates(cands)
	newID := o.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	var sb strings.Builder
	sb.WriteString("Mình đã chuẩn bị thêm vào giỏ:\n")
	books := make([]domain.BookSummary, 0, len(merged))
	actions := make([]domain.BotAction, 0, len(merged))
	for _, c := range merged {
		fmt.Fprintf(&sb, "- %d × %s\n", c.qty, c.book.Title.Vi)
		books = append(books, c.book)
		actions = append(actions, domain.BotAction{
			ID:      newID(),
			Type:    domain.ActionAddToCart,
			Payload: domain.AddToCartPayload{BookID: c.book.ID, Quantity: c.qty},
		})
	}
	sb.WriteString("Xác nhận nhé?")

	return domain.ChatBotResponse{Text: sb.String(), Books: books, Actions: actions}, nil
}

// mergeCandidates collapses candidates by book id, summing quantities and
// keeping first-seen order.
func mergeCandidates(cands []cartCandidate) []cartCandidate {
	out := make([]cartCandidate, 0, len(cands))
	pos := make(map[string]int, len(cands))
	for _, c := range cands {
		if i, ok := pos[c.book.ID]; ok {
			out[i].qty += c.qty
			continue
		}
		pos[c.book.ID] = len(out)
		out = append(out, c)
	}
	return out
}
