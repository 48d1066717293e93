package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"tgmedia/internal/config"
	"tgmedia/internal/telegram"
)

// Type selects which media messages to download.
type Type int

// The closed set of media type selectors.
const (
	TypeImages Type = iota
	TypeVideos
	TypePDFs
	TypeZips
	TypeDocuments
	TypeAll
)

// Exact mime matches for the document sub-kinds.
const (
	mimePDF = "application/pdf"
	mimeZip = "application/zip"
)

// ParseType parses a selector string. Unknown selectors are an error,
// never an empty result.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "images":
		return TypeImages, nil
	case "videos":
		return TypeVideos, nil
	case "pdfs":
		return TypePDFs, nil
	case "zips":
		return TypeZips, nil
	case "documents":
		return TypeDocuments, nil
	case "all":
		return TypeAll, nil
	}
	return 0, fmt.Errorf("unknown media type %q (want images|videos|pdfs|zips|documents|all)", s)
}

// String returns the selector spelling.
func (t Type) String() string {
	switch t {
	case TypeImages:
		return "images"
	case TypeVideos:
		return "videos"
	case TypePDFs:
		return "pdfs"
	case TypeZips:
		return "zips"
	case TypeDocuments:
		return "documents"
	}
	return "all"
}

// ServerFilter maps the selector to the server-side history filter, so
// the API only returns candidate messages. PDF and zip selection still
// needs the client-side mime pass.
func (t Type) ServerFilter() telegram.Filter {
	switch t {
	case TypeImages:
		return telegram.FilterPhotos
	case TypeVideos:
		return telegram.FilterVideo
	case TypePDFs, TypeZips, TypeDocuments:
		return telegram.FilterDocument
	}
	return telegram.FilterNone
}

// Matches reports whether a message's media payload satisfies the
// selector.
func (t Type) Matches(msg *telegram.Message) bool {
	m := msg.Media
	if m == nil {
		return false
	}
	switch t {
	case TypeAll:
		return true
	case TypeImages:
		return m.Kind == telegram.MediaPhoto
	case TypeVideos:
		return m.Kind == telegram.MediaVideo
	case TypePDFs:
		return m.Kind == telegram.MediaDocument && m.MimeType == mimePDF
	case TypeZips:
		return m.Kind == telegram.MediaDocument && m.MimeType == mimeZip
	case TypeDocuments:
		return m.Kind == telegram.MediaDocument
	}
	return false
}

// Filter returns the messages matching the selector, original order
// preserved. TypeAll is identity.
func Filter(msgs []*telegram.Message, t Type) []*telegram.Message {
	if t == TypeAll {
		return msgs
	}
	var out []*telegram.Message
	for _, msg := range msgs {
		if t.Matches(msg) {
			out = append(out, msg)
		}
	}
	return out
}

// AllowedBySize reports whether a record passes the configured size and
// extension filters.
func AllowedBySize(rec Record, f config.FilterConfig) bool {
	if f.MinFileSizeKB > 0 && rec.SizeBytes < f.MinFileSizeKB*1024 {
		return false
	}
	if f.MaxFileSizeMB > 0 && rec.SizeBytes > f.MaxFileSizeMB*1024*1024 {
		return false
	}

	ext := strings.ToLower(filepath.Ext(rec.DisplayName))
	if len(f.AllowedExtensions) > 0 && !containsFold(f.AllowedExtensions, ext) {
		return false
	}
	return !containsFold(f.ExcludedExtensions, ext)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
