package pipeline

import (
	"fmt"
	"os"

	"d2stats/internal"
)

// DocumentFiles points at local copies of the feeds. Empty paths are
// filled from snapshots or a fresh fetch.
type DocumentFiles struct {
	Items  string
	Names  string
	Heroes string
}

func (f DocumentFiles) path(feed internal.FeedName) string {
	switch feed {
	case internal.FeedItems:
		return f.Items
	case internal.FeedItemNames:
		return f.Names
	case internal.FeedHeroes:
		return f.Heroes
	default:
		return ""
	}
}

// Complete reports whether every feed has a local file.
func (f DocumentFiles) Complete() bool {
	return f.Items != "" && f.Names != "" && f.Heroes != ""
}

// Apply reads every configured file into docs, replacing what was there.
func (f DocumentFiles) Apply(docs *internal.FeedDocuments) error {
	for _, feed := range internal.AllFeeds {
		p := f.path(feed)
		if p == "" {
			continue
		}
		blob, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s feed: %w", feed, err)
		}
		docs.Set(feed, blob)
	}
	return nil
}
