package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmedia/internal/telegram"
)

func TestScanTextPatterns(t *testing.T) {
	s := NewScanner()

	tests := []struct {
		name  string
		text  string
		links []string
	}{
		{
			name:  "full t.me link also matches the bare pattern",
			text:  "see https://t.me/golang_news for more",
			links: []string{"https://t.me/golang_news", "t.me/golang_news"},
		},
		{
			name:  "bare t.me link",
			text:  "join t.me/rustlang today",
			links: []string{"t.me/rustlang"},
		},
		{
			name:  "handle mention",
			text:  "ping @some_channel about it",
			links: []string{"@some_channel"},
		},
		{
			name: "handle too short is ignored",
			text: "hi @abc!",
		},
		{
			name: "joinchat link matches three patterns",
			text: "invite: https://t.me/joinchat/AbCd-123",
			links: []string{
				"https://t.me/joinchat", // full-link pattern stops at the slash
				"t.me/joinchat",
				"https://t.me/joinchat/AbCd-123",
			},
		},
		{
			name:  "numeric deep link",
			text:  "https://t.me/c/1234567/89",
			links: []string{"https://t.me/c", "t.me/c", "https://t.me/c/1234567/89"},
		},
		{
			name: "no links",
			text: "nothing to see here",
		},
		{
			name: "empty text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := s.ScanText(tt.text, 1, nil, ContextText)
			var got []string
			for _, r := range records {
				got = append(got, r.Link)
			}
			assert.ElementsMatch(t, tt.links, got)
		})
	}
}

func TestScanTextPositions(t *testing.T) {
	s := NewScanner()

	records := s.ScanText("go to t.me/somewhere now", 7, nil, ContextText)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "t.me/somewhere", r.Link)
	assert.Equal(t, 7, r.MessageID)
	assert.Equal(t, ContextText, r.Context)
	require.NotNil(t, r.Position)
	assert.Equal(t, [2]int{6, 20}, *r.Position)
}

func TestScanMessageContexts(t *testing.T) {
	s := NewScanner()

	msg := &telegram.Message{
		ID:     3,
		ChatID: 99,
		Text:   "watch t.me/somechan",
		Entities: []telegram.EntityURL{
			{URL: "https://t.me/hidden_channel", Offset: 0, Length: 5},
		},
		Buttons: []telegram.ButtonURL{
			{URL: "https://t.me/button_channel"},
		},
	}

	records := s.ScanMessage(msg)
	require.Len(t, records, 3)

	byContext := make(map[Context]Record)
	for _, r := range records {
		byContext[r.Context] = r
		require.NotNil(t, r.ChatID)
		assert.Equal(t, int64(99), *r.ChatID)
	}

	assert.Equal(t, "t.me/somechan", byContext[ContextText].Link)
	assert.Equal(t, "https://t.me/hidden_channel", byContext[ContextEntity].Link)
	assert.Equal(t, [2]int{0, 5}, *byContext[ContextEntity].Position)
	assert.Equal(t, "https://t.me/button_channel", byContext[ContextButton].Link)
	assert.Nil(t, byContext[ContextButton].Position)
}

func TestScanMessageCaptionContext(t *testing.T) {
	s := NewScanner()

	msg := &telegram.Message{
		ID:     4,
		ChatID: 1,
		Text:   "photo from @media_channel",
		Media:  &telegram.MediaPayload{Kind: telegram.MediaPhoto, ID: 5},
	}

	records := s.ScanMessage(msg)
	require.Len(t, records, 1)
	assert.Equal(t, ContextCaption, records[0].Context)
}
