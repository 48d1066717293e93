// Package media derives stable download records from telegram messages
// and filters them by media type.
package media

import (
	"fmt"
	"strings"

	"tgmedia/internal/telegram"
)

// photoSizeEstimate is used for photos with no declared byte size so
// progress displays stay sane. An approximation, not a measurement.
const photoSizeEstimate = 1024 * 1024

// Kind is the coarse media type of a record.
type Kind int

// Record kinds.
const (
	KindImage Kind = iota
	KindVideo
	KindDocument
	KindOther
)

// String returns the capitalized kind name used in dry-run listings.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "Photo"
	case KindVideo:
		return "Video"
	case KindDocument:
		return "Document"
	}
	return "Other"
}

// Record describes one downloadable media payload. The ID is stable
// across runs and unique per payload; it is the join key with the
// download ledger.
type Record struct {
	ID          string
	DisplayName string
	SizeBytes   int64
	Kind        Kind
	MimeType    string
}

// Classify derives a Record from a message. It is total: any well-formed
// message yields a record, falling back to defaults for missing
// attributes.
func Classify(msg *telegram.Message) Record {
	m := msg.Media
	if m == nil || m.ID == 0 {
		return Record{
			ID:          fmt.Sprintf("media:%d", msg.ID),
			DisplayName: fmt.Sprintf("media_%d", msg.ID),
			Kind:        KindOther,
		}
	}

	switch m.Kind {
	case telegram.MediaVideo:
		return Record{
			ID:          fmt.Sprintf("video:%d:%d", msg.ID, m.ID),
			DisplayName: fileName(msg, "video_%d.mp4"),
			SizeBytes:   m.Size,
			Kind:        KindVideo,
			MimeType:    m.MimeType,
		}
	case telegram.MediaDocument:
		return Record{
			ID:          fmt.Sprintf("doc:%d:%d", msg.ID, m.ID),
			DisplayName: fileName(msg, "document_%d"),
			SizeBytes:   m.Size,
			Kind:        KindDocument,
			MimeType:    m.MimeType,
		}
	case telegram.MediaPhoto:
		size := m.Size
		if size == 0 {
			size = photoSizeEstimate
		}
		return Record{
			ID:          fmt.Sprintf("photo:%d:%d", msg.ID, m.ID),
			DisplayName: fileName(msg, "photo_%d.jpg"),
			SizeBytes:   size,
			Kind:        KindImage,
		}
	}

	return Record{
		ID:          fmt.Sprintf("media:%d", msg.ID),
		DisplayName: fmt.Sprintf("media_%d", msg.ID),
		SizeBytes:   m.Size,
		Kind:        KindOther,
		MimeType:    m.MimeType,
	}
}

// fileName prefers the document's declared filename and falls back to a
// synthesized name from the message id.
func fileName(msg *telegram.Message, fallback string) string {
	name := msg.Media.FileName
	if !validFileName(name) {
		return fmt.Sprintf(fallback, msg.ID)
	}
	return sanitizeFileName(name)
}

// validFileName rejects empty names and debug placeholder strings that
// some upstream layers hand back instead of a real filename.
func validFileName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.HasPrefix(name, "<")
}

// sanitizeFileName replaces characters unsafe for file systems.
func sanitizeFileName(name string) string {
	const invalid = `<>:"/\|?*`
	out := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalid, r) {
			return '_'
		}
		return r
	}, name)

	out = strings.Trim(out, " .")
	if out == "" {
		return "unnamed_file"
	}
	return out
}
