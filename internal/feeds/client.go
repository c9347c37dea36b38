package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"d2stats/internal"
	"d2stats/internal/config"
	"d2stats/internal/util"
)

const userAgent = "d2stats/1.0"

type Client struct {
	cfg     config.Config
	http    *retryablehttp.Client
	limiter *RateLimiter
	log     logrus.FieldLogger
}

func NewClient(cfg config.Config) *Client {
	log := util.Log.WithField("component", "feeds")

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.FeedRetryMax
	rc.RetryWaitMin = time.Duration(cfg.FeedRetryWaitMinMs) * time.Millisecond
	rc.RetryWaitMax = time.Duration(cfg.FeedRetryWaitMaxMs) * time.Millisecond
	rc.HTTPClient.Timeout = time.Duration(cfg.FeedTimeoutMs) * time.Millisecond
	rc.Logger = leveledLogger{log}

	return &Client{
		cfg:     cfg,
		http:    rc,
		limiter: NewRateLimiter(cfg.FeedRateLimitRPS),
		log:     log,
	}
}

func (c *Client) URL(feed internal.FeedName) (string, error) {
	switch feed {
	case internal.FeedItems:
		return c.cfg.ItemFeedURL, c.cfg.Require("ITEM_FEED_URL", c.cfg.ItemFeedURL)
	case internal.FeedItemNames:
		return c.cfg.ItemNamesFeedURL, c.cfg.Require("ITEM_NAMES_FEED_URL", c.cfg.ItemNamesFeedURL)
	case internal.FeedHeroes:
		return c.cfg.HeroFeedURL, c.cfg.Require("HERO_FEED_URL", c.cfg.HeroFeedURL)
	default:
		return "", fmt.Errorf("unknown feed: %s", feed)
	}
}

// Fetch downloads one feed and checks that it is JSON.
func (c *Client) Fetch(ctx context.Context, feed internal.FeedName) ([]byte, error) {
	u, err := c.URL(feed)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, u, "application/json")
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feed, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("fetch %s: response is not valid json", feed)
	}
	c.log.WithFields(logrus.Fields{"feed": feed, "bytes": len(body)}).Debug("feed fetched")
	return body, nil
}

// FetchAll downloads every feed. Nothing is returned unless all succeed.
func (c *Client) FetchAll(ctx context.Context) (internal.FeedDocuments, error) {
	var docs internal.FeedDocuments
	for _, feed := range internal.AllFeeds {
		body, err := c.Fetch(ctx, feed)
		if err != nil {
			return internal.FeedDocuments{}, err
		}
		docs.Set(feed, body)
	}
	return docs, nil
}

// FetchPage downloads an HTML page.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	return c.get(ctx, pageURL, "text/html")
}

func (c *Client) get(ctx context.Context, u, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status=%d url=%s", resp.StatusCode, u)
	}
	return body, nil
}

// FeedVersion extracts the version marker of a feed, if it carries one.
func FeedVersion(feed internal.FeedName, body []byte) string {
	if feed == internal.FeedItems {
		return gjson.GetBytes(body, "DOTAAbilities.Version").String()
	}
	return ""
}

type leveledLogger struct {
	log logrus.FieldLogger
}

func (l leveledLogger) fields(kv []interface{}) logrus.FieldLogger {
	entry := l.log
	for i := 0; i+1 < len(kv); i += 2 {
		entry = entry.WithField(fmt.Sprint(kv[i]), kv[i+1])
	}
	return entry
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.fields(kv).Error(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.fields(kv).Warn(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.fields(kv).Debug(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.fields(kv).Debug(msg) }
