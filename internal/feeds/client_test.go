package feeds

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"d2stats/internal"
	"d2stats/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func testConfig() config.Config {
	cfg, _ := config.Load()
	cfg.ItemFeedURL = "https://feeds.test/items.json"
	cfg.ItemNamesFeedURL = "https://feeds.test/names.json"
	cfg.HeroFeedURL = "https://feeds.test/heroes.json"
	cfg.FeedRetryMax = 2
	cfg.FeedRetryWaitMinMs = 1
	cfg.FeedRetryWaitMaxMs = 2
	cfg.FeedRateLimitRPS = 1000
	return cfg
}

func newTestClient(t *testing.T, cfg config.Config, rt roundTripFunc) *Client {
	t.Helper()
	client := NewClient(cfg)
	client.http.HTTPClient = &http.Client{Transport: rt}
	return client
}

func TestFetchRetriesServerErrors(t *testing.T) {
	attempt := 0
	client := newTestClient(t, testConfig(), func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/items.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		attempt++
		if attempt == 1 {
			return respond(http.StatusInternalServerError, `{"error":"boom"}`), nil
		}
		return respond(http.StatusOK, `{"DOTAAbilities":{"Version":"1"}}`), nil
	})

	body, err := client.Fetch(context.Background(), internal.FeedItems)
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
	if got := FeedVersion(internal.FeedItems, body); got != "1" {
		t.Fatalf("version=%q", got)
	}
}

func TestFetchRejectsClientErrorsWithoutRetry(t *testing.T) {
	attempt := 0
	client := newTestClient(t, testConfig(), func(r *http.Request) (*http.Response, error) {
		attempt++
		return respond(http.StatusNotFound, `not here`), nil
	})

	if _, err := client.Fetch(context.Background(), internal.FeedHeroes); err == nil {
		t.Fatal("expected error for 404")
	}
	if attempt != 1 {
		t.Fatalf("attempts=%d", attempt)
	}
}

func TestFetchRejectsInvalidJSON(t *testing.T) {
	client := newTestClient(t, testConfig(), func(r *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `<html>rate limited</html>`), nil
	})

	if _, err := client.Fetch(context.Background(), internal.FeedItemNames); err == nil {
		t.Fatal("expected error for non-json body")
	}
}

func TestFetchRequiresURL(t *testing.T) {
	cfg := testConfig()
	cfg.HeroFeedURL = " "
	client := newTestClient(t, cfg, func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	_, err := client.Fetch(context.Background(), internal.FeedHeroes)
	if err == nil || !strings.Contains(err.Error(), "HERO_FEED_URL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchAllIsAllOrNothing(t *testing.T) {
	bodies := map[string]string{
		"/items.json":  `{"DOTAAbilities":{}}`,
		"/names.json":  `{"blink":{"dname":"Blink Dagger"}}`,
		"/heroes.json": `{"1":{"localized_name":"Axe"}}`,
	}
	failHeroes := false
	client := newTestClient(t, testConfig(), func(r *http.Request) (*http.Response, error) {
		if failHeroes && r.URL.Path == "/heroes.json" {
			return respond(http.StatusForbidden, `nope`), nil
		}
		return respond(http.StatusOK, bodies[r.URL.Path]), nil
	})

	docs, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, feed := range internal.AllFeeds {
		if len(docs.Get(feed)) == 0 {
			t.Fatalf("feed %s missing", feed)
		}
	}

	failHeroes = true
	docs, err = client.FetchAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if docs.Items != nil || docs.ItemNames != nil {
		t.Fatal("partial documents returned")
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(1)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
