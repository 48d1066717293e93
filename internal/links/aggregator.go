package links

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tgmedia/internal/logger"
	"tgmedia/internal/telegram"
)

// Source is the message stream the aggregator consumes. Implemented by
// the telegram client.
type Source interface {
	ResolveChannel(ctx context.Context, ref string) (*telegram.Channel, error)
	ChannelInfo(ctx context.Context, channel *telegram.Channel) (*telegram.ChannelInfo, error)
	IterMessages(ctx context.Context, channel *telegram.Channel, opts telegram.IterOptions, fn func(*telegram.Message) error) error
}

// Aggregator drives a paginated message fetch through the scanner and
// accumulates link statistics.
type Aggregator struct {
	source  Source
	scanner *Scanner
	log     *logger.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(source Source, log *logger.Logger) *Aggregator {
	return &Aggregator{
		source:  source,
		scanner: NewScanner(),
		log:     log,
	}
}

// Extract scans up to limit messages of the referenced channel and
// returns the assembled report. The pass is all-or-nothing: a
// mid-iteration error discards all accumulated records.
func (a *Aggregator) Extract(ctx context.Context, ref string, limit int) (*Report, error) {
	channel, err := a.source.ResolveChannel(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve channel: %w", err)
	}

	info, err := a.source.ChannelInfo(ctx, channel)
	if err != nil {
		a.log.Warn().Err(err).Str("channel", ref).Msg("links: could not fetch extended channel info")
	}

	a.log.Info().Str("channel", channel.Title).Int("limit", limit).Msg("links: starting extraction")

	report := &Report{
		ExtractionInfo: ExtractionInfo{
			ExtractionID:      uuid.NewString(),
			ChannelIdentifier: ref,
			ChannelInfo:       info,
			ExtractionDate:    time.Now().UTC(),
			MessageLimit:      limit,
		},
		Links: []Record{},
	}

	processed := 0
	err = a.source.IterMessages(ctx, channel, telegram.IterOptions{Limit: limit}, func(msg *telegram.Message) error {
		processed++
		report.Links = append(report.Links, a.scanner.ScanMessage(msg)...)
		if processed%100 == 0 {
			a.log.Info().Int("messages", processed).Int("links", len(report.Links)).Msg("links: extraction progress")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	report.ExtractionInfo.TotalMessagesProcessed = processed
	report.ExtractionInfo.TotalLinksFound = len(report.Links)
	report.Statistics = buildStatistics(report.Links)

	a.log.Info().
		Int("messages", processed).
		Int("links", len(report.Links)).
		Int("unique", report.Statistics.UniqueLinks).
		Msg("links: extraction completed")

	return report, nil
}

// ExtractToFile runs Extract and writes the report to outPath once the
// pass completes.
func (a *Aggregator) ExtractToFile(ctx context.Context, ref string, limit int, outPath string) (*Report, error) {
	report, err := a.Extract(ctx, ref, limit)
	if err != nil {
		return nil, err
	}
	if err := report.Save(outPath); err != nil {
		return nil, err
	}
	a.log.Info().Str("path", outPath).Msg("links: report saved")
	return report, nil
}
