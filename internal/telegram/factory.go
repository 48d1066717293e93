package telegram

import (
	"fmt"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"gorm.io/gorm"
)

// NewSessionClient creates a telegram client backed by the sqlite
// session store. Auth key refreshes are persisted back automatically.
// The client only connects when a previously authorized session exists
// in the store; run the tg-auth tool first to create one.
func NewSessionClient(apiID int, apiHash string, db *gorm.DB) (*gotgproto.Client, error) {
	opts := &gotgproto.ClientOpts{
		Session:          sessionMaker.SqlSession(db.Dialector),
		DisableCopyright: true,
		InMemory:         false,
	}

	client, err := gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(""), // empty = use stored session
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	return client, nil
}
