package domain

import (
	"time"

	"gorm.io/gorm"
)

// ActionType tags a BotAction. Only AddToCart exists today.
type ActionType string

const ActionAddToCart ActionType = "add_to_cart"

// AddToCartPayload names the book and quantity a confirmed action adds.
type AddToCartPayload struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// BotAction is a proposed, unexecuted cart mutation. The assistant never runs
// it; the client must confirm it explicitly.
type BotAction struct {
	ID      string           `json:"id"`
	Type    ActionType       `json:"type"`
	Payload AddToCartPayload `json:"payload"`
}

// ChatBotResponse is the reply to one chat turn.
type ChatBotResponse struct {
	Text       string        `json:"text"`
	Intent     string        `json:"intent"`
	Confidence float64       `json:"confidence"`
	Books      []BookSummary `json:"books,omitempty"`
	Actions    []BotAction   `json:"actions,omitempty"`
}

// ChatSession groups the turns of one conversation with the assistant.
type ChatSession struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_sessions"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_sessions" }

// Turn roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// ChatTurn is one utterance in a session. Bot turns carry the resolved
// intent, confidence and the books/actions that were shown.
type ChatTurn struct {
	ID         string        `json:"id"                   gorm:"type:char(36);primaryKey"`
	SessionID  string        `json:"session_id"           gorm:"type:char(36);not null;index:idx_session_turns,priority:1"`
	Role       string        `json:"role"                 gorm:"type:varchar(16);not null;check:role IN ('user','bot')"`
	Content    string        `json:"content"              gorm:"type:text;not null"`
	Intent     string        `json:"intent,omitempty"     gorm:"type:varchar(32)"`
	Confidence *float64      `json:"confidence,omitempty"`
	Books      []BookSummary `json:"books,omitempty"      gorm:"type:text;serializer:json"`
	Actions    []BotAction   `json:"actions,omitempty"    gorm:"type:text;serializer:json"`
	CreatedAt  time.Time     `json:"created_at"           gorm:"index:idx_session_turns,priority:2"`
	UpdatedAt  time.Time     `json:"updated_at"`

	Session ChatSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatTurn.
func (ChatTurn) TableName() string { return "chat_turns" }

// Response rebuilds the reply a bot turn was created from.
func (t ChatTurn) Response() ChatBotResponse {
	var conf float64
	if t.Confidence != nil {
		conf = *t.Confidence
	}
	return ChatBotResponse{
		Text:       t.Content,
		Intent:     t.Intent,
		Confidence: conf,
		Books:      t.Books,
		Actions:    t.Actions,
	}
}

// ActionStatus is the lifecycle of a PendingAction.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionConfirmed ActionStatus = "confirmed"
	ActionCancelled ActionStatus = "cancelled"
)

// PendingAction stores a BotAction until the user confirms or cancels it.
// Its ID equals the BotAction ID sent to the client.
type PendingAction struct {
	ID         string       `json:"id"          gorm:"type:char(36);primaryKey"`
	SessionID  string       `json:"session_id"  gorm:"type:char(36);not null;index"`
	UserID     string       `json:"user_id"     gorm:"type:varchar(64);not null;index"`
	Type       ActionType   `json:"type"        gorm:"type:varchar(32);not null"`
	BookID     string       `json:"book_id"     gorm:"type:char(36);not null"`
	Quantity   int          `json:"quantity"    gorm:"not null"`
	Status     ActionStatus `json:"status"      gorm:"type:varchar(16);not null;index"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TableName returns the database table name for PendingAction.
func (PendingAction) TableName() string { return "pending_actions" }
