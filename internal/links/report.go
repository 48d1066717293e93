package links

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tgmedia/internal/telegram"
)

// ExtractionInfo describes one extraction pass.
type ExtractionInfo struct {
	ExtractionID           string                `json:"extraction_id"`
	ChannelIdentifier      string                `json:"channel_identifier"`
	ChannelInfo            *telegram.ChannelInfo `json:"channel_info,omitempty"`
	ExtractionDate         time.Time             `json:"extraction_date"`
	MessageLimit           int                   `json:"message_limit"`
	TotalMessagesProcessed int                   `json:"total_messages_processed"`
	TotalLinksFound        int                   `json:"total_links_found"`
}

// Statistics summarizes the collected records.
type Statistics struct {
	LinkTypes   map[Context]int `json:"link_types"`
	UniqueLinks int             `json:"unique_links"`
}

// Report is the serialized extraction result, written once after the
// full pass completes.
type Report struct {
	ExtractionInfo ExtractionInfo `json:"extraction_info"`
	Links          []Record       `json:"links"`
	Statistics     Statistics     `json:"statistics"`
}

// buildStatistics computes per-context counts and the number of unique
// links by exact, case-sensitive string equality.
func buildStatistics(records []Record) Statistics {
	stats := Statistics{LinkTypes: make(map[Context]int)}

	unique := make(map[string]struct{}, len(records))
	for _, r := range records {
		stats.LinkTypes[r.Context]++
		unique[r.Link] = struct{}{}
	}
	stats.UniqueLinks = len(unique)
	return stats
}

// Save writes the report as indented JSON, creating parent directories
// as needed.
func (r *Report) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
