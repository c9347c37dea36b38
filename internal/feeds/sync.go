package feeds

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"

	"d2stats/internal"
	"d2stats/internal/config"
	"d2stats/internal/storage"
	"d2stats/internal/util"
)

const lastSyncKey = "feeds.last_sync"

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg}
}

func (s *SyncService) Client() *Client {
	return s.client
}

type SyncResult struct {
	Docs        internal.FeedDocuments
	Changed     []internal.FeedName
	ItemVersion string
	// Hash identifies the fetched documents as a whole.
	Hash string
}

// Sync fetches every feed and stores a snapshot for each one whose body
// differs from the latest stored copy.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	docs, err := s.client.FetchAll(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{
		Docs:        docs,
		ItemVersion: FeedVersion(internal.FeedItems, docs.Items),
		Hash:        DocumentsHash(docs),
	}
	for _, feed := range internal.AllFeeds {
		body := docs.Get(feed)
		snap, inserted, err := s.db.InsertSnapshot(feed, FeedVersion(feed, body), hashBody(body), body)
		if err != nil {
			return SyncResult{}, err
		}
		if inserted {
			result.Changed = append(result.Changed, feed)
		}
		util.Log.WithFields(logrus.Fields{
			"feed":     feed,
			"snapshot": snap.ID,
			"changed":  inserted,
		}).Info("feed synced")
	}

	if err := s.db.SetMetadata(lastSyncKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		util.Log.WithError(err).Warn("last sync time not recorded")
	}
	return result, nil
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// DocumentsHash is stable for identical feed bodies.
func DocumentsHash(docs internal.FeedDocuments) string {
	h := sha256.New()
	for _, feed := range internal.AllFeeds {
		sum := sha256.Sum256(docs.Get(feed))
		h.Write(sum[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
