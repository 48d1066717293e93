// Package ledger persists the set of already-downloaded file ids so
// interrupted runs can resume without re-downloading.
package ledger

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"tgmedia/internal/logger"
)

// state is the persisted form of the ledger.
type state struct {
	DownloadedFiles []string  `json:"downloaded_files"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Ledger is a durable, monotonically growing set of downloaded file ids.
// Every successful download rewrites the whole file, so it is not safe
// for concurrent processes sharing one path.
type Ledger struct {
	path string
	log  *logger.Logger

	mu  sync.Mutex
	ids map[string]struct{}
}

// New creates an empty ledger that will persist to path, ignoring any
// existing state there.
func New(path string, log *logger.Logger) *Ledger {
	return &Ledger{
		path: path,
		log:  log,
		ids:  make(map[string]struct{}),
	}
}

// Load reads the ledger at path. A missing file yields an empty ledger;
// a corrupt one is logged and treated as empty. Load never fails the
// caller.
func Load(path string, log *logger.Logger) *Ledger {
	l := New(path, log)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("ledger: could not read state, starting empty")
		}
		return l
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ledger: corrupt state file, starting empty")
		return l
	}

	for _, id := range st.DownloadedFiles {
		l.ids[id] = struct{}{}
	}
	log.Info().Int("count", len(l.ids)).Msg("ledger: loaded previously downloaded files")
	return l
}

// IsDownloaded reports whether the id has already been downloaded.
func (l *Ledger) IsDownloaded(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

// MarkDownloaded records the id and immediately persists the full set.
// A persistence failure degrades resume durability but is not fatal.
func (l *Ledger) MarkDownloaded(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ids[id] = struct{}{}
	if err := l.persistLocked(); err != nil {
		l.log.Warn().Err(err).Str("path", l.path).Msg("ledger: could not save state")
	}
}

// Len returns the number of recorded ids.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

func (l *Ledger) persistLocked() error {
	ids := make([]string, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.MarshalIndent(state{
		DownloadedFiles: ids,
		LastUpdated:     time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0644)
}
