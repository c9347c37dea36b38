package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func itemListPage(lists int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < lists; i++ {
		b.WriteString(`<div class="itemlist">`)
		fmt.Fprintf(&b, `<div><a href="/wiki/x%d"><img></a><a href="/wiki/x%d">Item %d</a></div>`, i, i, i)
		b.WriteString(`<div><a href="/wiki/lonely">only icon</a></div>`)
		b.WriteString("</div>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestParseItemCategories(t *testing.T) {
	got, err := ParseItemCategories([]byte(itemListPage(30)))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 30 {
		t.Fatalf("len=%d", len(got))
	}
	want := map[int]string{
		0:  "Basics Items",
		5:  "Upgraded Items",
		11: "Neutral Items",
		18: "Roshan Drop",
		19: "Unreleased Items",
		21: "Removed Items",
		28: "Event Items",
		29: "No idea",
	}
	for i, category := range want {
		if got[i].Category != category || got[i].Name != fmt.Sprintf("Item %d", i) {
			t.Fatalf("entry %d: %+v", i, got[i])
		}
	}
}

func TestParseItemCategoriesNestedEntries(t *testing.T) {
	page := `<html><body><div class="itemlist">
		<div class="row">
			<div><a href="/wiki/Tango"><img></a><a href="/wiki/Tango">Tango</a></div>
			<div><a href="/wiki/Clarity"><img></a><a href="/wiki/Clarity">Clarity</a></div>
		</div>
		<div><a href="/wiki/Flask"><img></a><a href="/wiki/Flask">Healing Salve</a></div>
	</div></body></html>`

	got, err := ParseItemCategories([]byte(page))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, c := range got {
		if c.Category != "Basics Items" {
			t.Fatalf("unexpected category: %+v", c)
		}
		names = append(names, c.Name)
	}
	if strings.Join(names, ",") != "Tango,Clarity,Healing Salve" {
		t.Fatalf("names=%v", names)
	}
}

func TestScrapeItemCategories(t *testing.T) {
	cfg := testConfig()
	cfg.ItemWikiURL = "https://wiki.test/wiki/Items"
	client := newTestClient(t, cfg, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/wiki/Items" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		return respond(http.StatusOK, itemListPage(2)), nil
	})

	got, err := client.ScrapeItemCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Name != "Item 1" {
		t.Fatalf("unexpected categories: %+v", got)
	}
}
