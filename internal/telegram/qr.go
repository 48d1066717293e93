package telegram

import (
	"encoding/json"
	"fmt"

	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"gorm.io/gorm"
)

// QRClientBundle contains the components needed for QR authentication.
type QRClientBundle struct {
	Client     *telegram.Client
	Dispatcher tg.UpdateDispatcher
	Storage    *session.StorageMemory
}

// NewQRClient creates a raw gotd client suitable for QR authentication.
// Unlike gotgproto's NewClient, this does not attempt interactive CLI
// auth; the captured session is saved to the store afterwards.
func NewQRClient(apiID int, apiHash string) *QRClientBundle {
	memStorage := &session.StorageMemory{}
	dispatcher := tg.NewUpdateDispatcher()

	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: memStorage,
		UpdateHandler:  &dispatcher,
	})

	return &QRClientBundle{
		Client:     client,
		Dispatcher: dispatcher,
		Storage:    memStorage,
	}
}

// SaveSessionToStore converts gotd session data into gotgproto's storage
// format and upserts it into the sqlite session store, so the main
// binary can reuse the authorization.
func SaveSessionToStore(db *gorm.DB, data *session.Data) error {
	if data == nil {
		return fmt.Errorf("session data is nil")
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session data: %w", err)
	}

	sess := &storage.Session{
		Version: storage.LatestVersion,
		Data:    dataJSON,
	}
	if err := db.AutoMigrate(&storage.Session{}); err != nil {
		return fmt.Errorf("migrate session store: %w", err)
	}
	return db.Save(sess).Error
}
