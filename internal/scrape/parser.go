package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Role distinguishes the thread opener from its replies
type Role int

const (
	RolePost Role = iota
	RoleReply
)

// ScrapedEntry is one parsed fragment of a thread page: the opening
// entry or a single comment. Instances are transient; they are folded
// into durable post, reply, and identity records and then discarded.
type ScrapedEntry struct {
	Role        Role
	Title       string // opener only
	Permalink   string // replies only; deduplication key across pages
	AuthorLabel string
	IconURL     string
	IconCaption string
	Timestamp   string // raw platform string, never reformatted
	BodyHTML    string
}

// Marker for the platform-injected footer some export modes append
// after the body ("Edited at ..." wrapped in a div).
const editTimeMarker = `<div class="edittime"`

// ParseEntry extracts the thread opener from a fetched page
func ParseEntry(doc *goquery.Document) (*ScrapedEntry, error) {
	entry := doc.Find(".entry").First()
	if entry.Length() == 0 {
		return nil, fmt.Errorf("no entry block found in document")
	}

	content := entry.Find(".entry-content").First()
	if content.Length() == 0 {
		return nil, fmt.Errorf("entry has no content block")
	}
	body, err := content.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to extract entry body: %w", err)
	}

	e := &ScrapedEntry{
		Role:        RolePost,
		Title:       strings.TrimSpace(doc.Find(".entry-title").First().Text()),
		AuthorLabel: strings.TrimSpace(entry.Find(".poster b").First().Text()),
		Timestamp:   strings.TrimSpace(entry.Find(".datetime").First().Text()),
		BodyHTML:    stripEditFooter(body),
	}
	readUserpic(entry, e)
	return e, nil
}

// ParseComments extracts every expanded reply block on a page, in
// document order. Collapsed stubs (comment nodes rendered without a
// content block, as threaded mode does beyond the platform page size)
// are skipped; their replies arrive on their own subthread pages.
func ParseComments(doc *goquery.Document) []*ScrapedEntry {
	var entries []*ScrapedEntry
	doc.Find(".comment").Each(func(_ int, sel *goquery.Selection) {
		if e := parseComment(sel); e != nil {
			entries = append(entries, e)
		}
	})
	return entries
}

func parseComment(sel *goquery.Selection) *ScrapedEntry {
	content := sel.Find(".comment-content").First()
	if content.Length() == 0 {
		return nil
	}
	body, err := content.Html()
	if err != nil {
		return nil
	}

	e := &ScrapedEntry{
		Role:        RoleReply,
		Permalink:   sel.Find(".comment-title a").First().AttrOr("href", ""),
		AuthorLabel: strings.TrimSpace(sel.Find(".comment-poster b").First().Text()),
		Timestamp:   strings.TrimSpace(sel.Find(".datetime").First().Text()),
		BodyHTML:    stripEditFooter(body),
	}
	if e.Permalink == "" {
		// fall back to the DOM id so deduplication still has a key
		e.Permalink, _ = sel.Attr("id")
	}
	readUserpic(sel, e)
	return e
}

func readUserpic(sel *goquery.Selection, e *ScrapedEntry) {
	img := sel.Find(".userpic img").First()
	if img.Length() == 0 {
		return
	}
	e.IconURL = img.AttrOr("src", "")
	e.IconCaption = img.AttrOr("title", "")
}

// stripEditFooter truncates the body before the edit-time footer. The
// footer only ever appears as the trailing element, so the body must
// end with its closing wrapper for the marker to be trusted.
func stripEditFooter(body string) string {
	trimmed := strings.TrimRight(body, " \t\r\n")
	if !strings.HasSuffix(trimmed, "</div>") {
		return body
	}
	idx := strings.LastIndex(trimmed, editTimeMarker)
	if idx < 0 {
		return body
	}
	return strings.TrimRight(trimmed[:idx], " \t\r\n")
}
