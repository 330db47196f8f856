// Package services – ChatService
//
// ChatService owns chat sessions and their transcripts. SendMessage runs one
// orchestrator turn while holding the session lock, then stores the user
// turn, the bot turn and any proposed actions in a single transaction, so a
// transcript never shows a question without its answer.
//
// An optional idempotency key makes SendMessage safe to retry: a repeated
// (user, session, key) replays the stored bot turn instead of running the
// turn again.

package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxContentRunes caps a chat message when the service is not
	// configured otherwise.
	DefaultMaxContentRunes = 2000
	// DefaultIdempotencyTTL is how long a replayable result is kept.
	DefaultIdempotencyTTL = 24 * time.Hour
)

// ChatService manages sessions and runs chat turns.
type ChatService struct {
	DB           *gorm.DB
	Orchestrator *Orchestrator

	// MaxContentRunes caps message length; DefaultMaxContentRunes when <= 0.
	MaxContentRunes int
	// IdempotencyTTL bounds replays; DefaultIdempotencyTTL when <= 0.
	IdempotencyTTL time.Duration

	Now func() time.Time
}

// NewChatService constructs a ChatService with default limits.
func NewChatService(db *gorm.DB, o *Orchestrator) *ChatService {
	return &ChatService{
		DB:              db,
		Orchestrator:    o,
		MaxContentRunes: DefaultMaxContentRunes,
		IdempotencyTTL:  DefaultIdempotencyTTL,
		Now:             time.Now,
	}
}

func (s *ChatService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// MaxRunes reports the effective message length limit.
func (s *ChatService) MaxRunes() int {
	if s.MaxContentRunes <= 0 {
		return DefaultMaxContentRunes
	}
	return s.MaxContentRunes
}

// CreateSession starts a new conversation for userID.
func (s *ChatService) CreateSession(ctx context.Context, userID string) (*domain.ChatSession, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "CreateSession",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.CreateSession(ctx, s.DB, userID)
}

// GetSession returns the session if it belongs to userID.
func (s *ChatService) GetSession(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	sess, err := repo.GetSession(ctx, s.DB, sessionID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// SendMessage sanitizes content, runs the turn and persists it. The second
// return value is true when the result was replayed from an earlier request
// with the same idempotency key.
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID, content, idemKey string) (*domain.ChatTurn, bool, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "SendMessage",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("user.id", userID),
			attribute.Bool("idempotent", idemKey != ""),
		),
	)
	defer span.End()

	content = SanitizeContent(content)
	if content == "" {
		return nil, false, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.MaxRunes() {
		return nil, false, ErrContentTooLong
	}
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, false, err
	}

	unlock := s.Orchestrator.lock(sessionID)
	defer unlock()

	idemKey = strings.TrimSpace(idemKey)
	if idemKey != "" {
		if prev, err := s.replay(ctx, userID, sessionID, idemKey); err == nil {
			span.SetAttributes(attribute.Bool("idempotency.replayed", true))
			return prev, true, nil
		}
	}

	userAt := s.now()
	res, err := s.Orchestrator.processTurn(ctx, sessionID, content)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	botAt := s.now()
	if !botAt.After(userAt) {
		botAt = userAt.Add(time.Microsecond)
	}

	conf := res.Confidence
	bot := &domain.ChatTurn{
		SessionID:  sessionID,
		Role:       domain.RoleBot,
		Content:    res.Text,
		Intent:     res.Intent,
		Confidence: &conf,
		Books:      res.Books,
		Actions:    res.Actions,
		CreatedAt:  botAt,
	}
	// processTurn has already saved the session's book memory. It is not
	// rolled back if the transcript write below fails, so the next turn can
	// refer to books from a reply the client never received.
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := &domain.ChatTurn{
			SessionID: sessionID,
			Role:      domain.RoleUser,
			Content:   content,
			CreatedAt: userAt,
		}
		if err := repo.CreateTurn(ctx, tx, user); err != nil {
			return err
		}
		if err := repo.CreateTurn(ctx, tx, bot); err != nil {
			return err
		}
		if err := repo.CreatePendingActions(ctx, tx, sessionID, userID, res.Actions); err != nil {
			return err
		}
		if err := repo.TouchSession(ctx, tx, sessionID, botAt); err != nil {
			return err
		}
		if idemKey != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, userID, sessionID, idemKey, bot.ID, 200, s.ttl()); err != nil && !errors.Is(err, repo.ErrDuplicate) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	return bot, false, nil
}

func (s *ChatService) ttl() time.Duration {
	if s.IdempotencyTTL <= 0 {
		return DefaultIdempotencyTTL
	}
	return s.IdempotencyTTL
}

// replay loads the bot turn recorded for an idempotency key.
func (s *ChatService) replay(ctx context.Context, userID, sessionID, key string) (*domain.ChatTurn, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, sessionID, key, s.now())
	if err != nil {
		return nil, err
	}
	return repo.GetTurn(ctx, s.DB, sessionID, rec.TurnID)
}

// ListTurns returns one page of a session transcript, oldest first.
func (s *ChatService) ListTurns(ctx context.Context, userID, sessionID string, page, pageSize int) ([]domain.ChatTurn, int64, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "ListTurns",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountTurns(ctx, s.DB, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatTurn{}, 0, nil
	}
	items, err := repo.ListTurnsPage(ctx, s.DB, sessionID, offset, pageSize)
	return items, total, err
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// SanitizeContent converts CRLF/CR to LF, collapses runs of blank lines and
// trims surrounding whitespace.
func SanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
