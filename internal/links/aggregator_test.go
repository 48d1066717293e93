package links

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmedia/internal/logger"
	"tgmedia/internal/telegram"
)

type fakeSource struct {
	messages   []*telegram.Message
	infoErr    error
	resolveErr error
	iterErr    error
}

func (f *fakeSource) ResolveChannel(_ context.Context, ref string) (*telegram.Channel, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &telegram.Channel{ID: 42, Title: "Test Channel", Username: ref}, nil
}

func (f *fakeSource) ChannelInfo(_ context.Context, channel *telegram.Channel) (*telegram.ChannelInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &telegram.ChannelInfo{ID: channel.ID, Title: channel.Title, Username: channel.Username}, nil
}

func (f *fakeSource) IterMessages(_ context.Context, _ *telegram.Channel, opts telegram.IterOptions, fn func(*telegram.Message) error) error {
	for i, msg := range f.messages {
		if opts.Limit > 0 && i >= opts.Limit {
			break
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
	return f.iterErr
}

func TestExtractBuildsReport(t *testing.T) {
	source := &fakeSource{
		messages: []*telegram.Message{
			{ID: 1, ChatID: 42, Text: "check t.me/first_chan"},
			{ID: 2, ChatID: 42, Text: "also @second_chan here"},
			{ID: 3, ChatID: 42, Text: "nothing"},
		},
	}
	agg := NewAggregator(source, logger.Nop())

	report, err := agg.Extract(context.Background(), "somechannel", 100)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ExtractionInfo.ExtractionID)
	assert.Equal(t, "somechannel", report.ExtractionInfo.ChannelIdentifier)
	assert.Equal(t, 100, report.ExtractionInfo.MessageLimit)
	assert.Equal(t, 3, report.ExtractionInfo.TotalMessagesProcessed)
	assert.Equal(t, 2, report.ExtractionInfo.TotalLinksFound)
	require.NotNil(t, report.ExtractionInfo.ChannelInfo)
	assert.Equal(t, "Test Channel", report.ExtractionInfo.ChannelInfo.Title)
	assert.Len(t, report.Links, 2)
	assert.Equal(t, 2, report.Statistics.UniqueLinks)
	assert.Equal(t, map[Context]int{ContextText: 2}, report.Statistics.LinkTypes)
}

func TestExtractDeduplicatesAcrossContexts(t *testing.T) {
	// The same literal link in a plain message and a media caption
	// counts once in unique_links while both occurrences stay in the
	// per-context totals.
	source := &fakeSource{
		messages: []*telegram.Message{
			{ID: 1, ChatID: 42, Text: "t.me/shared_chan"},
			{
				ID:     2,
				ChatID: 42,
				Text:   "t.me/shared_chan",
				Media:  &telegram.MediaPayload{Kind: telegram.MediaPhoto, ID: 9},
			},
		},
	}
	agg := NewAggregator(source, logger.Nop())

	report, err := agg.Extract(context.Background(), "somechannel", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Statistics.UniqueLinks)
	assert.Equal(t, 1, report.Statistics.LinkTypes[ContextText])
	assert.Equal(t, 1, report.Statistics.LinkTypes[ContextCaption])

	total := 0
	for _, n := range report.Statistics.LinkTypes {
		total += n
	}
	assert.Equal(t, len(report.Links), total)
}

func TestExtractRespectsLimit(t *testing.T) {
	source := &fakeSource{
		messages: []*telegram.Message{
			{ID: 1, ChatID: 42, Text: "t.me/chan_one"},
			{ID: 2, ChatID: 42, Text: "t.me/chan_two"},
			{ID: 3, ChatID: 42, Text: "t.me/chan_three"},
		},
	}
	agg := NewAggregator(source, logger.Nop())

	report, err := agg.Extract(context.Background(), "somechannel", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ExtractionInfo.TotalMessagesProcessed)
	assert.Len(t, report.Links, 2)
}

func TestExtractInfoFailureIsNonFatal(t *testing.T) {
	source := &fakeSource{
		messages: []*telegram.Message{{ID: 1, ChatID: 42, Text: "t.me/only_chan"}},
		infoErr:  errors.New("CHANNEL_PRIVATE"),
	}
	agg := NewAggregator(source, logger.Nop())

	report, err := agg.Extract(context.Background(), "somechannel", 10)
	require.NoError(t, err)
	assert.Nil(t, report.ExtractionInfo.ChannelInfo)
	assert.Len(t, report.Links, 1)
}

func TestExtractIterationFailureDiscardsEverything(t *testing.T) {
	source := &fakeSource{
		messages: []*telegram.Message{{ID: 1, ChatID: 42, Text: "t.me/only_chan"}},
		iterErr:  errors.New("FLOOD_WAIT exhausted"),
	}
	agg := NewAggregator(source, logger.Nop())

	report, err := agg.Extract(context.Background(), "somechannel", 10)
	require.Error(t, err)
	assert.Nil(t, report)
}

func TestExtractResolveFailure(t *testing.T) {
	source := &fakeSource{resolveErr: errors.New("USERNAME_NOT_OCCUPIED")}
	agg := NewAggregator(source, logger.Nop())

	_, err := agg.Extract(context.Background(), "nope", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve channel")
}

func TestExtractToFileWritesReport(t *testing.T) {
	source := &fakeSource{
		messages: []*telegram.Message{{ID: 1, ChatID: 42, Text: "t.me/file_chan"}},
	}
	agg := NewAggregator(source, logger.Nop())

	outPath := filepath.Join(t.TempDir(), "reports", "links.json")
	report, err := agg.ExtractToFile(context.Background(), "somechannel", 10, outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var loaded Report
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, report.ExtractionInfo.ExtractionID, loaded.ExtractionInfo.ExtractionID)
	require.Len(t, loaded.Links, 1)
	assert.Equal(t, "t.me/file_chan", loaded.Links[0].Link)
	assert.Equal(t, 1, loaded.Statistics.UniqueLinks)
}
