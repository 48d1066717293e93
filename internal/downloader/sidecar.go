package downloader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tgmedia/internal/telegram"
)

// sidecar is the per-file metadata written alongside a download.
type sidecar struct {
	MessageID    int       `json:"message_id"`
	Date         time.Time `json:"date"`
	Sender       string    `json:"sender,omitempty"`
	Chat         string    `json:"chat"`
	FileName     string    `json:"file_name"`
	FileSize     int64     `json:"file_size"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// writeSidecar stores message metadata next to the downloaded file as
// <file>.json.
func writeSidecar(msg *telegram.Message, path string) error {
	meta := sidecar{
		MessageID:    msg.ID,
		Date:         msg.Date,
		Chat:         strconv.FormatInt(msg.ChatID, 10),
		FileName:     filepath.Base(path),
		DownloadedAt: time.Now().UTC(),
	}
	if msg.SenderID != 0 {
		meta.Sender = strconv.FormatInt(msg.SenderID, 10)
	}
	if fi, err := os.Stat(path); err == nil {
		meta.FileSize = fi.Size()
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path+".json", data, 0644)
}
