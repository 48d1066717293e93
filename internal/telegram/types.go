package telegram

import (
	"time"

	"github.com/gotd/td/tg"
)

// MediaKind is the coarse media classification of a message payload.
type MediaKind int

// Media kinds, in the order they are probed.
const (
	MediaPhoto MediaKind = iota
	MediaVideo
	MediaDocument
)

// String returns the lowercase kind name.
func (k MediaKind) String() string {
	switch k {
	case MediaPhoto:
		return "photo"
	case MediaVideo:
		return "video"
	case MediaDocument:
		return "document"
	}
	return "other"
}

// MediaPayload is the media attached to a message, constructed once at
// the client boundary so the rest of the code never touches raw tg types.
type MediaPayload struct {
	Kind     MediaKind
	ID       int64  // inner media object id (photo or document id)
	Size     int64  // declared byte size, 0 when unknown
	MimeType string // document mime type, empty for photos
	FileName string // document filename attribute, empty when absent

	// raw objects retained for building download locations
	Photo    *tg.Photo
	Document *tg.Document
}

// EntityURL is a rich-text entity carrying an explicit URL.
type EntityURL struct {
	URL    string
	Offset int
	Length int
}

// ButtonURL is an inline keyboard button carrying a URL.
type ButtonURL struct {
	URL string
}

// Message represents a parsed telegram message.
type Message struct {
	ID        int
	ChatID    int64
	SenderID  int64 // 0 when the sender is not a user
	GroupedID int64 // album id, 0 when the message is not part of one
	Text      string
	Date      time.Time
	Media     *MediaPayload
	Entities  []EntityURL
	Buttons   []ButtonURL
}

// HasMedia reports whether the message carries a recognized media payload.
func (m *Message) HasMedia() bool {
	return m.Media != nil
}

// Channel represents a resolved telegram channel or supergroup.
type Channel struct {
	ID         int64
	AccessHash int64
	Username   string // without @, empty for private channels
	Title      string
}

// ChannelInfo is extended channel metadata used in extraction reports.
type ChannelInfo struct {
	ID                int64  `json:"id"`
	Username          string `json:"username,omitempty"`
	Title             string `json:"title"`
	About             string `json:"description,omitempty"`
	ParticipantsCount int    `json:"participants_count,omitempty"`
	AdminsCount       int    `json:"admins_count,omitempty"`
	Verified          bool   `json:"verified"`
	Scam              bool   `json:"scam"`
	Fake              bool   `json:"fake"`
}

// IterOptions controls message iteration.
type IterOptions struct {
	Limit      int       // max messages to visit, 0 means no limit
	Filter     Filter    // server-side media filter
	OffsetDate time.Time // only messages older than this, zero means all
}

// Filter selects which messages the server returns.
type Filter int

// Server-side message filters.
const (
	FilterNone Filter = iota
	FilterPhotos
	FilterVideo
	FilterDocument
)

// asMessagesFilter maps Filter to the tg filter class.
func (f Filter) asMessagesFilter() tg.MessagesFilterClass {
	switch f {
	case FilterPhotos:
		return &tg.InputMessagesFilterPhotos{}
	case FilterVideo:
		return &tg.InputMessagesFilterVideo{}
	case FilterDocument:
		return &tg.InputMessagesFilterDocument{}
	}
	return nil
}
