package telegram

import (
	"strconv"
	"time"

	"github.com/gotd/td/tg"
)

// parseChannelID reports whether ref is a bare numeric channel id.
func parseChannelID(ref string) (int64, bool) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// rawMessages unwraps the message list from a history response.
func rawMessages(resp tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := resp.(type) {
	case *tg.MessagesChannelMessages:
		return h.Messages
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	}
	return nil
}

// messageID extracts the id from any message class, for pagination.
func messageID(msg tg.MessageClass) int {
	switch m := msg.(type) {
	case *tg.Message:
		return m.ID
	case *tg.MessageService:
		return m.ID
	case *tg.MessageEmpty:
		return m.ID
	}
	return 0
}

// parseMessage converts a raw telegram message to our Message type.
// Service and empty messages yield nil.
func parseMessage(msg tg.MessageClass, chatID int64) *Message {
	m, ok := msg.(*tg.Message)
	if !ok {
		return nil
	}

	out := &Message{
		ID:        m.ID,
		ChatID:    chatID,
		GroupedID: m.GroupedID,
		Text:      m.Message,
		Date:      time.Unix(int64(m.Date), 0),
		Media:     parseMedia(m.Media),
	}

	if from, ok := m.FromID.(*tg.PeerUser); ok {
		out.SenderID = from.UserID
	}

	for _, e := range m.Entities {
		if textURL, ok := e.(*tg.MessageEntityTextURL); ok && textURL.URL != "" {
			out.Entities = append(out.Entities, EntityURL{
				URL:    textURL.URL,
				Offset: textURL.Offset,
				Length: textURL.Length,
			})
		}
	}

	if markup, ok := m.ReplyMarkup.(*tg.ReplyInlineMarkup); ok {
		for _, row := range markup.Rows {
			for _, btn := range row.Buttons {
				if urlBtn, ok := btn.(*tg.KeyboardButtonURL); ok && urlBtn.URL != "" {
					out.Buttons = append(out.Buttons, ButtonURL{URL: urlBtn.URL})
				}
			}
		}
	}

	return out
}

// parseMedia builds the media payload union for a message. Unrecognized
// media classes (polls, geo points, webpages) yield nil.
func parseMedia(media tg.MessageMediaClass) *MediaPayload {
	switch md := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := md.Photo.(*tg.Photo)
		if !ok {
			return nil
		}
		var size int64
		if s := largestPhotoSize(photo); s != nil {
			size = int64(s.Size)
		}
		return &MediaPayload{
			Kind:  MediaPhoto,
			ID:    photo.ID,
			Size:  size,
			Photo: photo,
		}
	case *tg.MessageMediaDocument:
		doc, ok := md.Document.(*tg.Document)
		if !ok {
			return nil
		}
		payload := &MediaPayload{
			Kind:     MediaDocument,
			ID:       doc.ID,
			Size:     doc.Size,
			MimeType: doc.MimeType,
			Document: doc,
		}
		for _, attr := range doc.Attributes {
			switch a := attr.(type) {
			case *tg.DocumentAttributeVideo:
				payload.Kind = MediaVideo
			case *tg.DocumentAttributeFilename:
				payload.FileName = a.FileName
			}
		}
		return payload
	}
	return nil
}

// largestPhotoSize picks the photo size with the biggest area.
func largestPhotoSize(photo *tg.Photo) *tg.PhotoSize {
	var best *tg.PhotoSize
	bestArea := 0
	for _, s := range photo.Sizes {
		size, ok := s.(*tg.PhotoSize)
		if !ok {
			continue
		}
		if area := size.W * size.H; area > bestArea {
			bestArea = area
			best = size
		}
	}
	return best
}
