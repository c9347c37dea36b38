package feeds

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"d2stats/internal"
)

// categoryFor maps the position of an item list on the wiki page to the
// shop section it belongs to.
func categoryFor(index int) string {
	switch {
	case index <= 4:
		return "Basics Items"
	case index <= 10:
		return "Upgraded Items"
	case index <= 17:
		return "Neutral Items"
	case index == 18:
		return "Roshan Drop"
	case index == 19:
		return "Unreleased Items"
	case index <= 21:
		return "Removed Items"
	case index <= 28:
		return "Event Items"
	default:
		return "No idea"
	}
}

func ParseItemCategories(page []byte) ([]internal.ItemCategory, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse item page: %w", err)
	}

	var out []internal.ItemCategory
	doc.Find("div.itemlist").Each(func(i int, list *goquery.Selection) {
		category := categoryFor(i)
		seen := map[string]bool{}
		list.Find("div").Each(func(_ int, entry *goquery.Selection) {
			links := entry.Find("a")
			if links.Length() < 2 {
				return
			}
			name := strings.TrimSpace(links.Eq(1).Text())
			// A wrapper div sees the links of the entry it contains.
			if name == "" || seen[name] {
				return
			}
			seen[name] = true
			out = append(out, internal.ItemCategory{Name: name, Category: category})
		})
	})
	return out, nil
}

// ScrapeItemCategories downloads the wiki item page and lists every item
// under its shop section.
func (c *Client) ScrapeItemCategories(ctx context.Context) ([]internal.ItemCategory, error) {
	if err := c.cfg.Require("ITEM_WIKI_URL", c.cfg.ItemWikiURL); err != nil {
		return nil, err
	}
	page, err := c.FetchPage(ctx, c.cfg.ItemWikiURL)
	if err != nil {
		return nil, fmt.Errorf("fetch item page: %w", err)
	}
	return ParseItemCategories(page)
}
