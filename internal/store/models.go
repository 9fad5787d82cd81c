package store

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Item struct {
	ID          string
	Title       string
	Description string
	Category    string
	Location    string
	Status      string // lost | found
	PhotoKey    string
	ReportedBy  string // empty for anonymous reports

	ClaimStatus   string
	ClaimedByID   string
	ClaimedByName string // legacy column, display string recorded before ids were kept
	ClaimNote     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemMessage is one entry in an item's conversation thread.
type ItemMessage struct {
	ID         string
	ItemID     string
	SenderID   string
	SenderName string
	Body       string
	CreatedAt  time.Time
}

// DirectMessage is a private message between two users, outside any item.
type DirectMessage struct {
	ID         string
	SenderID   string
	ReceiverID string
	Body       string
	Read       bool
	CreatedAt  time.Time
}

// Conversation is one row of the inbox summary: the latest exchange with
// one counterparty plus how many of their messages are still unread.
type Conversation struct {
	OtherID        string
	OtherName      string
	LastMessage    string
	LastAt         time.Time
	LastSenderName string
	UnreadCount    int
}

type PasswordReset struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	UsedAt    *time.Time
}
