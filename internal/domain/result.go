package domain

import (
	"time"
)

// InventoryResult is the summary recorded when an inventory completes.
type InventoryResult struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Kind        InventoryKind  `json:"kind"`
	Top         []string       `json:"top"`
	Scores      map[string]int `json:"scores"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Direction of a conversation event relative to the bot.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ConversationEvent is one logged message in either direction.
type ConversationEvent struct {
	ID        string
	UserID    string
	Transport string
	Direction Direction
	Mode      string
	Text      string
	CreatedAt time.Time
}
