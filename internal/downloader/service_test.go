package downloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmedia/internal/ledger"
	"tgmedia/internal/logger"
	"tgmedia/internal/telegram"
)

// fakeTransfer simulates media transfers and records concurrency.
type fakeTransfer struct {
	delay   time.Duration
	failIDs map[int64]bool // media ids that fail after writing a partial file

	calls      atomic.Int32
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
	completed  atomic.Int32
	violations atomic.Int32 // group barrier violations, see groupOf

	batchSize int
}

// groupOf maps a media id (1-based position in the work list) to its
// group index for barrier checking.
func (f *fakeTransfer) groupOf(id int64) int32 {
	return int32(id-1) / int32(f.batchSize)
}

func (f *fakeTransfer) Download(_ context.Context, m *telegram.MediaPayload, path string, onProgress telegram.ProgressFunc) error {
	f.calls.Add(1)

	// a task of group N may only start once all earlier groups completed
	if f.batchSize > 0 {
		if f.completed.Load() < f.groupOf(m.ID)*int32(f.batchSize) {
			f.violations.Add(1)
		}
	}

	cur := f.inFlight.Add(1)
	for {
		prev := f.maxFlight.Load()
		if cur <= prev || f.maxFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	defer func() {
		f.inFlight.Add(-1)
		f.completed.Add(1)
	}()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if err := os.WriteFile(path, []byte("partial"), 0644); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(7, 7)
	}
	if f.failIDs[m.ID] {
		return errors.New("simulated transfer failure")
	}
	return nil
}

func photoMessages(n int) []*telegram.Message {
	msgs := make([]*telegram.Message, n)
	for i := range msgs {
		msgs[i] = &telegram.Message{
			ID:     i + 1,
			ChatID: 42,
			Date:   time.Now(),
			Media:  &telegram.MediaPayload{Kind: telegram.MediaPhoto, ID: int64(i + 1), Size: 7},
		}
	}
	return msgs
}

func newTestService(t *testing.T, transfer Transferrer) (*Service, *ledger.Ledger, string) {
	t.Helper()
	dir := t.TempDir()
	led := ledger.Load(filepath.Join(dir, "state.json"), logger.Nop())
	return NewService(transfer, led, nil, logger.Nop()), led, filepath.Join(dir, "out")
}

func TestRunHappyPath(t *testing.T) {
	transfer := &fakeTransfer{}
	svc, led, dest := newTestService(t, transfer)

	stats, err := svc.Run(context.Background(), photoMessages(5), dest, Options{BatchSize: 5})
	require.NoError(t, err)

	assert.Equal(t, Stats{Success: 5, Failed: 0, Skipped: 0}, stats)
	assert.Equal(t, 5, led.Len())

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestRunSecondRunSkipsEverything(t *testing.T) {
	transfer := &fakeTransfer{}
	svc, _, dest := newTestService(t, transfer)
	msgs := photoMessages(4)

	first, err := svc.Run(context.Background(), msgs, dest, Options{BatchSize: 2})
	require.NoError(t, err)
	require.Equal(t, Stats{Success: 4}, first)

	second, err := svc.Run(context.Background(), msgs, dest, Options{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, Stats{Skipped: 4}, second)

	// skipped items do no transfer I/O
	assert.Equal(t, int32(4), transfer.calls.Load())
}

func TestRunFailureIsolation(t *testing.T) {
	transfer := &fakeTransfer{failIDs: map[int64]bool{2: true}}
	svc, led, dest := newTestService(t, transfer)

	stats, err := svc.Run(context.Background(), photoMessages(3), dest, Options{BatchSize: 3})
	require.NoError(t, err)

	assert.Equal(t, Stats{Success: 2, Failed: 1}, stats)
	assert.Equal(t, 2, led.Len())

	// the failed item's partial file is removed, siblings remain
	assert.NoFileExists(t, filepath.Join(dest, "photo_2.jpg"))
	assert.FileExists(t, filepath.Join(dest, "photo_1.jpg"))
	assert.FileExists(t, filepath.Join(dest, "photo_3.jpg"))
}

func TestRunGroupBoundedConcurrency(t *testing.T) {
	transfer := &fakeTransfer{delay: 20 * time.Millisecond, batchSize: 3}
	svc, _, dest := newTestService(t, transfer)

	stats, err := svc.Run(context.Background(), photoMessages(7), dest, Options{BatchSize: 3})
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Success)
	assert.LessOrEqual(t, transfer.maxFlight.Load(), int32(3), "more than batchSize transfers in flight")
	assert.Zero(t, transfer.violations.Load(), "a group started before the previous one finished")
}

func TestRunDestDirCreationFailure(t *testing.T) {
	transfer := &fakeTransfer{}
	svc, _, _ := newTestService(t, transfer)

	// a regular file where the directory should go makes MkdirAll fail
	blocker := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := svc.Run(context.Background(), photoMessages(1), blocker, Options{})
	require.Error(t, err)
	assert.Equal(t, int32(0), transfer.calls.Load())
}

func TestRunCancelledBetweenGroups(t *testing.T) {
	transfer := &fakeTransfer{delay: 10 * time.Millisecond}
	svc, _, dest := newTestService(t, transfer)

	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	transferWrapped := transferFunc(func(ctx2 context.Context, m *telegram.MediaPayload, path string, p telegram.ProgressFunc) error {
		once.Do(cancel)
		return transfer.Download(ctx2, m, path, p)
	})
	svc = NewService(transferWrapped, svc.ledger, nil, logger.Nop())

	stats, err := svc.Run(ctx, photoMessages(6), dest, Options{BatchSize: 2})
	require.ErrorIs(t, err, context.Canceled)
	// the first group still completes before the cancellation is observed
	assert.Equal(t, 2, stats.Total())
}

func TestRunWritesMetadataSidecar(t *testing.T) {
	transfer := &fakeTransfer{}
	svc, _, dest := newTestService(t, transfer)

	_, err := svc.Run(context.Background(), photoMessages(1), dest, Options{BatchSize: 1, PreserveMetadata: true})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "photo_1.jpg.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message_id": 1`)
	assert.Contains(t, string(data), `"file_name": "photo_1.jpg"`)
}

// transferFunc adapts a function to the Transferrer interface.
type transferFunc func(ctx context.Context, m *telegram.MediaPayload, path string, onProgress telegram.ProgressFunc) error

func (f transferFunc) Download(ctx context.Context, m *telegram.MediaPayload, path string, onProgress telegram.ProgressFunc) error {
	return f(ctx, m, path, onProgress)
}

func TestDryRunListsWithoutIO(t *testing.T) {
	var buf strings.Builder
	DryRun(photoMessages(12), &buf)

	out := buf.String()
	assert.Contains(t, out, "photo_1.jpg")
	assert.Contains(t, out, "and 2 more files")
	assert.Contains(t, out, "total files: 12")
}
