// Package domain contains core concepts of the mailbox.
// This file defines the Message held by the store until its single delivery.
// Messages are immutable once enqueued.
package domain

import (
	"time"
)

const TitleLength = 60

// Message represents one pending anonymous submission.
type Message struct {
	ID         string    `json:"id" cbor:"1,keyasint"`
	Title      string    `json:"title" cbor:"2,keyasint"`
	Content    string    `json:"content" cbor:"3,keyasint"`
	ReceivedAt time.Time `json:"receivedAt" cbor:"4,keyasint"`
	Lang       string    `json:"lang,omitempty" cbor:"5,keyasint,omitempty"`
}

// NewMessage builds a message from already sanitized content.
// The identifier and reception time are assigned by the store at enqueue time.
func NewMessage(content, lang string) Message {
	return Message{
		Title:   Title(content),
		Content: content,
		Lang:    lang,
	}
}

// Title returns the first TitleLength runes of the content.
func Title(content string) string {
	runes := []rune(content)
	if len(runes) <= TitleLength {
		return content
	}
	return string(runes[:TitleLength])
}
