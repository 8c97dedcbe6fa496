package scrape

import (
	"net/url"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// pageSize is the number of comment nodes the source platform expands
// per page in threaded view.
const pageSize = 25

var commentDepthPattern = regexp.MustCompile(`\bcomment-depth-(\d+)\b`)

// PageLinks returns the additional page URLs named by the "more pages"
// navigation element of a flat-mode document, in document order. An
// absent navigation element means the thread fits on one page.
func PageLinks(doc *goquery.Document, base *url.URL) []string {
	nav := doc.Find(".page-links").First()
	if nav.Length() == 0 {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	nav.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		abs := resolveHref(base, a.AttrOr("href", ""))
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})
	return links
}

// ContinuationLinks discovers the subthread permalinks needed to fetch
// the remainder of a threaded-mode comment forest.
//
// Every comment node declares its position through a comment-depth-N
// class, but only the first pageSize of them are expanded on any page.
// Probing starts one past the page size and advances by the page size
// from each hit; each hit contributes the node's own subthread
// permalink. Real threads contain the occasional node with a wrong or
// missing depth marker, sometimes exactly on a page boundary, so each
// probe also checks the following depth before giving up.
func ContinuationLinks(doc *goquery.Document, base *url.URL) []string {
	depths := make(map[int]*goquery.Selection)
	doc.Find("#comments .comment-thread").Each(func(_ int, sel *goquery.Selection) {
		m := commentDepthPattern.FindStringSubmatch(sel.AttrOr("class", ""))
		if m == nil {
			return
		}
		d, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}
		if _, ok := depths[d]; !ok {
			depths[d] = sel
		}
	})

	var links []string
	probe := pageSize + 1
	for {
		node, ok := depths[probe]
		if !ok {
			// one malformed node shifts the rest of the chain by one
			node, ok = depths[probe+1]
			if !ok {
				break
			}
			probe++
		}
		href := node.Find(".comment-title a").First().AttrOr("href", "")
		if abs := resolveHref(base, href); abs != "" {
			links = append(links, abs)
		}
		probe += pageSize
	}
	return links
}

func resolveHref(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
