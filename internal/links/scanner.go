// Package links extracts telegram channel references from message text,
// rich-text entities and inline buttons, and aggregates them into a
// report.
package links

import (
	"regexp"
	"time"

	"tgmedia/internal/telegram"
)

// Context is the structural source a link was found in.
type Context string

// Link contexts.
const (
	ContextText    Context = "text"
	ContextCaption Context = "caption"
	ContextEntity  Context = "entity"
	ContextButton  Context = "button"
)

// Record is one captured link occurrence. Occurrences are not
// deduplicated at capture time.
type Record struct {
	Link      string    `json:"link"`
	MessageID int       `json:"message_id"`
	ChatID    *int64    `json:"chat_id"`
	Context   Context   `json:"context"`
	Position  *[2]int   `json:"position"` // byte span in the scanned text, nil for buttons
	Timestamp time.Time `json:"timestamp"`
}

// linkPatterns cover every telegram link format: full and bare t.me
// links, @handle mentions, join-chat invites and numeric deep links.
// A substring matching several patterns yields several records.
var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://t\.me/[a-zA-Z0-9_]+`),
	regexp.MustCompile(`(?i)t\.me/[a-zA-Z0-9_]+`),
	regexp.MustCompile(`@[a-zA-Z0-9_]{5,32}`),
	regexp.MustCompile(`(?i)https?://t\.me/joinchat/[a-zA-Z0-9_-]+`),
	regexp.MustCompile(`(?i)https?://t\.me/c/\d+/\d+`),
}

// Scanner finds channel-reference links in messages.
type Scanner struct {
	now func() time.Time
}

// NewScanner creates a scanner.
func NewScanner() *Scanner {
	return &Scanner{now: time.Now}
}

// ScanText runs every pattern against the text and records every match
// independently.
func (s *Scanner) ScanText(text string, msgID int, chatID *int64, context Context) []Record {
	if text == "" {
		return nil
	}

	var records []Record
	for _, pattern := range linkPatterns {
		for _, span := range pattern.FindAllStringIndex(text, -1) {
			pos := [2]int{span[0], span[1]}
			records = append(records, Record{
				Link:      text[span[0]:span[1]],
				MessageID: msgID,
				ChatID:    chatID,
				Context:   context,
				Position:  &pos,
				Timestamp: s.now(),
			})
		}
	}
	return records
}

// ScanMessage collects link records from a message's body, URL entities
// and inline buttons. The body context is caption when the message
// carries media, text otherwise.
func (s *Scanner) ScanMessage(msg *telegram.Message) []Record {
	chatID := &msg.ChatID

	bodyContext := ContextText
	if msg.HasMedia() {
		bodyContext = ContextCaption
	}
	records := s.ScanText(msg.Text, msg.ID, chatID, bodyContext)

	for _, e := range msg.Entities {
		pos := [2]int{e.Offset, e.Offset + e.Length}
		records = append(records, Record{
			Link:      e.URL,
			MessageID: msg.ID,
			ChatID:    chatID,
			Context:   ContextEntity,
			Position:  &pos,
			Timestamp: s.now(),
		})
	}

	for _, b := range msg.Buttons {
		records = append(records, Record{
			Link:      b.URL,
			MessageID: msg.ID,
			ChatID:    chatID,
			Context:   ContextButton,
			Timestamp: s.now(),
		})
	}

	return records
}
