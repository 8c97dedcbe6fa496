package models

import (
	"time"
)

// Identity models

// User represents a local account that owns posts, characters, and icons
type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Character represents a fictional persona a user may post as.
// ScreenName is the handle the persona uses on the external platform.
type Character struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	Name       string    `json:"name" db:"name"`
	ScreenName string    `json:"screen_name" db:"screen_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Icon is a named avatar image owned by a user. Icons are grouped into
// galleries and attached to characters through those galleries.
type Icon struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	URL       string    `json:"url" db:"url"`
	Keyword   string    `json:"keyword" db:"keyword"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Gallery is a user-owned grouping of icons attachable to characters
type Gallery struct {
	ID     int64  `json:"id" db:"id"`
	UserID int64  `json:"user_id" db:"user_id"`
	Name   string `json:"name" db:"name"`
}

// Content models

// Post is the aggregate root produced by an import: the opening entry
// of a thread plus denormalized summary fields over its replies.
type Post struct {
	ID             int64     `json:"id" db:"id"`
	BoardID        int64     `json:"board_id" db:"board_id"`
	SectionID      *int64    `json:"section_id,omitempty" db:"section_id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	Subject        string    `json:"subject" db:"subject"`
	Content        string    `json:"content" db:"content"`
	CharacterID    *int64    `json:"character_id,omitempty" db:"character_id"`
	IconID         *int64    `json:"icon_id,omitempty" db:"icon_id"`
	Status         string    `json:"status" db:"status"`
	ThreadedImport bool      `json:"threaded_import" db:"threaded_import"`
	LastUserID     *int64    `json:"last_user_id,omitempty" db:"last_user_id"`
	LastReplyID    *int64    `json:"last_reply_id,omitempty" db:"last_reply_id"`
	LastActivity   string    `json:"last_activity" db:"last_activity"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Post status values
const (
	PostStatusActive   = "active"
	PostStatusComplete = "complete"
)

// Reply is one comment in a post's ordered reply sequence.
// ExternalTimestamp is the human-readable timestamp string scraped from
// the source platform, stored as provided and never reformatted.
type Reply struct {
	ID                int64     `json:"id" db:"id"`
	PostID            int64     `json:"post_id" db:"post_id"`
	ReplyOrder        int       `json:"reply_order" db:"reply_order"`
	UserID            int64     `json:"user_id" db:"user_id"`
	CharacterID       *int64    `json:"character_id,omitempty" db:"character_id"`
	IconID            *int64    `json:"icon_id,omitempty" db:"icon_id"`
	Content           string    `json:"content" db:"content"`
	ExternalTimestamp string    `json:"external_timestamp" db:"external_timestamp"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Message is a one-off site notification delivered to a user
type Message struct {
	ID          int64     `json:"id" db:"id"`
	RecipientID int64     `json:"recipient_id" db:"recipient_id"`
	Subject     string    `json:"subject" db:"subject"`
	Body        string    `json:"body" db:"body"`
	Unread      bool      `json:"unread" db:"unread"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
