// Package downloader runs batched, concurrency-limited media downloads
// with ledger-based resume.
package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tgmedia/internal/ledger"
	"tgmedia/internal/logger"
	"tgmedia/internal/media"
	"tgmedia/internal/telegram"
)

// Transferrer performs a single media transfer. Implemented by the
// telegram client; faked in tests.
type Transferrer interface {
	Download(ctx context.Context, m *telegram.MediaPayload, path string, onProgress telegram.ProgressFunc) error
}

// Stats aggregates per-item outcomes across all groups of one run.
type Stats struct {
	Success int
	Failed  int
	Skipped int
}

// Total returns the number of processed items.
func (s Stats) Total() int {
	return s.Success + s.Failed + s.Skipped
}

// Options controls one orchestrator run.
type Options struct {
	BatchSize        int           // concurrent downloads per group, default 5
	TransferTimeout  time.Duration // per-item timeout, 0 disables
	PreserveMetadata bool          // write a JSON sidecar per downloaded file
}

// outcome of a single item.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailed
	outcomeSkipped
)

// Service downloads media messages in fixed-size concurrent groups.
type Service struct {
	transfer Transferrer
	ledger   *ledger.Ledger
	reporter Reporter
	log      *logger.Logger
}

// NewService creates a download service.
func NewService(transfer Transferrer, led *ledger.Ledger, reporter Reporter, log *logger.Logger) *Service {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Service{
		transfer: transfer,
		ledger:   led,
		reporter: reporter,
		log:      log,
	}
}

// Run downloads the given media messages into destDir. Messages are
// processed in contiguous groups of BatchSize; each group's members
// download concurrently and the group completes before the next starts.
// Item failures are isolated and counted, never propagated. Directory
// creation failure is fatal; cancellation is honored between groups.
func (s *Service) Run(ctx context.Context, msgs []*telegram.Message, destDir string, opts Options) (Stats, error) {
	var stats Stats

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return stats, fmt.Errorf("create output directory %s: %w", destDir, err)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	groups := (len(msgs) + batchSize - 1) / batchSize
	for gi := 0; gi < len(msgs); gi += batchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		group := msgs[gi:min(gi+batchSize, len(msgs))]
		s.reporter.GroupStarted(gi/batchSize+1, groups)

		outcomes := make([]outcome, len(group))
		var wg sync.WaitGroup
		for i, msg := range group {
			wg.Add(1)
			go func(i int, msg *telegram.Message) {
				defer wg.Done()
				outcomes[i] = s.downloadOne(ctx, msg, destDir, opts)
			}(i, msg)
		}
		wg.Wait()

		for _, o := range outcomes {
			switch o {
			case outcomeSuccess:
				stats.Success++
			case outcomeFailed:
				stats.Failed++
			case outcomeSkipped:
				stats.Skipped++
			}
		}
	}

	return stats, nil
}

// downloadOne processes one item: ledger check, transfer, ledger update.
// All errors end up as outcomeFailed; nothing escapes to siblings.
func (s *Service) downloadOne(ctx context.Context, msg *telegram.Message, destDir string, opts Options) outcome {
	rec := media.Classify(msg)

	if s.ledger.IsDownloaded(rec.ID) {
		s.log.Debug().Str("file", rec.DisplayName).Msg("download: already in ledger, skipping")
		s.reporter.FileSkipped(rec.DisplayName)
		return outcomeSkipped
	}

	if msg.Media == nil {
		s.log.Warn().Int("message_id", msg.ID).Msg("download: message has no media payload")
		s.reporter.FileFailed(rec.DisplayName)
		return outcomeFailed
	}

	path := filepath.Join(destDir, rec.DisplayName)

	tctx := ctx
	if opts.TransferTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, opts.TransferTimeout)
		defer cancel()
	}

	err := s.transfer.Download(tctx, msg.Media, path, func(received, total int64) {
		s.reporter.Progress(rec.DisplayName, received, total)
	})
	if err != nil {
		s.log.Error().Err(err).Str("file", rec.DisplayName).Msg("download: transfer failed")
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			s.log.Warn().Err(rerr).Str("path", path).Msg("download: could not remove partial file")
		}
		s.reporter.FileFailed(rec.DisplayName)
		return outcomeFailed
	}

	s.ledger.MarkDownloaded(rec.ID)
	if opts.PreserveMetadata {
		if err := writeSidecar(msg, path); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("download: could not write metadata sidecar")
		}
	}

	s.log.Info().Str("file", rec.DisplayName).Msg("download: completed")
	s.reporter.FileDone(rec.DisplayName)
	return outcomeSuccess
}
