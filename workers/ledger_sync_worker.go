package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"buidl-engine/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerSyncClient mirrors the host ledger into local storage: wallet
// balances and the chain height cursor the engine's window checks run
// against.
type LedgerSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewLedgerSyncClient(db *gorm.DB) *LedgerSyncClient {
	baseURL := os.Getenv("LEDGER_NODE_URL")
	if baseURL == "" {
		log.Fatal("LEDGER_NODE_URL environment variable is required")
	}
	token := os.Getenv("BUIDL_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("BUIDL_SERVICE_TOKEN environment variable is required for ledger sync")
	}

	return &LedgerSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ledgerSnapshot is the node's answer to a since-query: the current chain
// height plus every wallet whose balance changed.
type ledgerSnapshot struct {
	Height  uint64          `json:"height"`
	Wallets []models.Wallet `json:"wallets"`
}

func (c *LedgerSyncClient) GetSnapshot(ctx context.Context, since time.Time) (*ledgerSnapshot, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/ledger/snapshot", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ledger node: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ledger node returned status %d: %s", resp.StatusCode, string(body))
	}

	var snapshot ledgerSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode ledger snapshot: %w", err)
	}

	return &snapshot, nil
}

// PollLedger keeps the wallet mirror and the chain cursor fresh. The cursor
// only ever moves forward; a node answering with a lower height is ignored.
func PollLedger(ctx context.Context, client *LedgerSyncClient, pollInterval time.Duration) {
	log.Println("Starting ledger polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Ledger polling stopped.")
			return
		case <-ticker.C:
			pollStart := time.Now().UTC()

			snapshot, err := client.GetSnapshot(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling ledger: %v", err)
				continue
			}

			if len(snapshot.Wallets) > 0 {
				err := client.DB.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "account"}},
					DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
				}).Create(&snapshot.Wallets).Error
				if err != nil {
					log.Printf("❌ Failed to upsert %d wallets: %v", len(snapshot.Wallets), err)
					continue
				}
				log.Printf("📥 Synced %d wallet change(s) from ledger node.", len(snapshot.Wallets))
			}

			if err := advanceCursor(client.DB, snapshot.Height); err != nil {
				log.Printf("❌ Failed to advance chain cursor: %v", err)
				continue
			}

			lastSyncTime = pollStart
		}
	}
}

func advanceCursor(db *gorm.DB, height uint64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var cursor models.ChainCursor
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(models.ChainCursor{ID: 1}).
			Attrs(models.ChainCursor{Height: 0}).
			FirstOrCreate(&cursor).Error; err != nil {
			return err
		}
		if height <= cursor.Height {
			return nil
		}
		cursor.Height = height
		return tx.Save(&cursor).Error
	})
}
