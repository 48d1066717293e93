// Command tg-auth performs the one-time interactive Telegram login and
// stores the session in the sqlite store the tgmedia binary uses.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"
	"gorm.io/gorm"

	tgwrap "tgmedia/internal/telegram"
)

func main() {
	fmt.Println("=== telegram auth tool ===")
	fmt.Println("this tool authorizes your account and stores the session")
	fmt.Println()

	_ = godotenv.Load()
	reader := bufio.NewReader(os.Stdin)

	apiID, apiHash := getAPICredentials(reader)
	sessionDB := os.Getenv("TG_SESSION_DB")
	if sessionDB == "" {
		sessionDB = "session.db"
	}

	fmt.Println("choose authentication method:")
	fmt.Println("  1. phone number (sms/code, 2fa supported)")
	fmt.Println("  2. QR code (scan with a logged-in telegram app)")
	fmt.Print("\nenter choice [1]: ")
	choice, _ := reader.ReadString('\n')

	var err error
	if strings.TrimSpace(choice) == "2" {
		err = authWithQR(apiID, apiHash, sessionDB)
	} else {
		err = authWithPhone(apiID, apiHash, sessionDB, reader)
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✓ authentication successful!")
	fmt.Printf("session stored in %s — the tgmedia command will reuse it\n", sessionDB)
}

// getAPICredentials reads the API credentials from env or prompts.
func getAPICredentials(reader *bufio.Reader) (int, string) {
	apiIDStr := os.Getenv("TG_API_ID")
	apiHash := os.Getenv("TG_API_HASH")

	if apiIDStr == "" {
		fmt.Print("enter your api_id (from https://my.telegram.org): ")
		apiIDStr, _ = reader.ReadString('\n')
		apiIDStr = strings.TrimSpace(apiIDStr)
	}
	if apiHash == "" {
		fmt.Print("enter your api_hash: ")
		apiHash, _ = reader.ReadString('\n')
		apiHash = strings.TrimSpace(apiHash)
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		fmt.Printf("error: invalid api_id: %v\n", err)
		os.Exit(1)
	}

	return apiID, apiHash
}

// authWithPhone authenticates interactively with a phone number. The
// code (and 2FA password when enabled) is prompted on the terminal.
func authWithPhone(apiID int, apiHash, sessionDB string, reader *bufio.Reader) error {
	fmt.Print("enter your phone number (with country code, e.g. +1234567890): ")
	phone, _ := reader.ReadString('\n')
	phone = strings.TrimSpace(phone)

	fmt.Println("\nauthenticating... (check telegram for the code)")

	client, err := gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(sessionDB)),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return err
	}
	defer client.Stop()

	fmt.Printf("logged in as: @%s\n", client.Self.Username)
	return nil
}

// authWithQR runs the QR login flow, rendering the token on the
// terminal, and saves the captured session into the sqlite store.
func authWithQR(apiID int, apiHash, sessionDB string) error {
	ctx := context.Background()
	bundle := tgwrap.NewQRClient(apiID, apiHash)

	var sessionData *session.Data
	err := bundle.Client.Run(ctx, func(ctx context.Context) error {
		loggedIn := qrlogin.OnLoginToken(&bundle.Dispatcher)

		_, err := bundle.Client.QR().Auth(ctx, loggedIn, func(_ context.Context, token qrlogin.Token) error {
			fmt.Println("\nscan this QR code with telegram (settings → devices → link desktop device):")
			qrterminal.GenerateHalfBlock(token.URL(), qrterminal.L, os.Stdout)
			return nil
		})
		if err != nil {
			return err
		}

		loader := session.Loader{Storage: bundle.Storage}
		sessionData, err = loader.Load(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("QR auth flow: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(sessionDB), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	return tgwrap.SaveSessionToStore(db, sessionData)
}
