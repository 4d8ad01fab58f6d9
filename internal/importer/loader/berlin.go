package loader

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/okfde/froide-legalaction/internal/model"
)

// metaNeedles maps the metadata table row labels of gesetze.berlin.de
// decision pages to decision fields.
var metaNeedles = []string{
	"Gericht",
	"Entscheidungsdatum",
	"Aktenzeichen",
	"ECLI",
	"Dokumenttyp",
	"Norm",
}

var contentSections = []string{"Tenor", "Tatbestand", "Entscheidungsgründe"}

var (
	beschlussFix = regexp.MustCompile(`BESCHLUSS([A-Z])`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// Berlin loads decisions from a directory of saved gesetze.berlin.de HTML
// pages.
type Berlin struct{}

func (l *Berlin) Name() string { return "berlin" }

func (l *Berlin) Jurisdiction() string { return "" }

func (l *Berlin) Load(ctx context.Context, path string) ([]Item, error) {
	files, err := filepath.Glob(filepath.Join(path, "*.html"))
	if err != nil {
		return nil, eris.Wrapf(err, "berlin: glob %s", path)
	}

	var items []Item
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return items, eris.Wrap(err, "berlin: load")
		}
		zap.L().Info("loading decision page", zap.String("path", file))

		item, err := l.loadFile(file)
		if err != nil {
			items = append(items, Item{Source: file, Err: err})
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (l *Berlin) loadFile(path string) (Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return Item{}, eris.Wrapf(err, "berlin: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	root, err := html.Parse(f)
	if err != nil {
		return Item{}, eris.Wrapf(err, "berlin: parse %s", path)
	}

	selfURL := linkHref(root, "self")
	if selfURL == "" {
		return Item{}, eris.Errorf("berlin: no self link in %s", path)
	}

	meta := make(map[string]string)
	for _, needle := range metaNeedles {
		if v := metaValue(root, needle); v != "" {
			meta[needle] = v
		}
	}

	date, err := parseGermanDate(meta["Entscheidungsdatum"])
	if err != nil {
		return Item{}, eris.Wrapf(err, "berlin: date in %s", path)
	}

	sections := make(map[string]string)
	for _, needle := range append([]string{"Orientierungssatz", "Leitsatz"}, contentSections...) {
		sections[needle] = sectionText(root, needle)
	}

	var parts []string
	for _, needle := range contentSections {
		if sections[needle] == "" {
			continue
		}
		parts = append(parts, "## "+needle+"\n\n"+sections[needle])
	}
	fulltext := blankRuns.ReplaceAllString(strings.Join(parts, "\n\n"), "\n\n")

	d := model.Decision{
		Title:            pageTitle(root),
		SourceURL:        selfURL,
		GuidingPrinciple: sections["Leitsatz"],
		Fulltext:         fulltext,
		CourtName:        meta["Gericht"],
		LawName:          meta["Norm"],
		Date:             &date,
		ECLI:             meta["ECLI"],
		Reference:        meta["Aktenzeichen"],
		SourceData: map[string]any{
			"path":   path,
			"loader": "berlin",
			"url":    selfURL,
		},
	}
	if label := meta["Dokumenttyp"]; label != "" {
		d.DecisionType = model.ParseDecisionType(label)
	}

	return Item{
		Decision:    d,
		CourtLookup: courtFromFilename(path),
		Source:      path,
	}, nil
}

// courtFromFilename derives the court lookup name from the saved page's file
// name, e.g. "ovg-berlin-brandenburg_OVG_12_B_1.19.html".
func courtFromFilename(path string) string {
	name := filepath.Base(path)
	name, _, _ = strings.Cut(name, "_")
	name = strings.Replace(name, "-", " ", 1)
	name = strings.ReplaceAll(name, "ovg", "oberverwaltungsgericht")
	name = strings.ReplaceAll(name, "vg", "verwaltungsgericht")
	return name
}

// parseGermanDate parses "17.04.2002" style dates, tolerating unpadded day
// and month.
func parseGermanDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return time.Time{}, eris.Errorf("invalid date %q", s)
	}
	t, err := time.Parse("2006-1-2", parts[2]+"-"+parts[1]+"-"+parts[0])
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "invalid date %q", s)
	}
	return t, nil
}

// pageTitle extracts the first paragraph under div.docLayoutTitel.
func pageTitle(root *html.Node) string {
	titel := findNode(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "docLayoutTitel")
	})
	if titel == nil {
		return ""
	}
	p := findNode(titel, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "p"
	})
	if p == nil {
		return ""
	}
	return cleanText(textContent(p))
}

// linkHref finds <link rel=...> in the document head.
func linkHref(root *html.Node, rel string) string {
	link := findNode(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "link" && attrValue(n, "rel") == rel
	})
	if link == nil {
		return ""
	}
	return attrValue(link, "href")
}

// metaValue reads the value cell of the metadata table row labelled
// "<needle>:".
func metaValue(root *html.Node, needle string) string {
	for _, tr := range findNodes(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "tr"
	}) {
		th := findNode(tr, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "th"
		})
		if th == nil || cleanText(textContent(th)) != needle+":" {
			continue
		}
		td := findNode(tr, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "td"
		})
		if td == nil {
			return ""
		}
		return cleanText(textContent(td))
	}
	return ""
}

// sectionText collects the dd elements of the content divs following the
// section header "<h4>needle</h4>", up to the next section header.
func sectionText(root *html.Node, needle string) string {
	header := findNode(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "div" || !hasClass(n, "docLayoutMarginTopMore") {
			return false
		}
		h4 := findNode(n, func(c *html.Node) bool {
			return c.Type == html.ElementNode && c.Data == "h4"
		})
		return h4 != nil && cleanText(textContent(h4)) == needle
	})
	if header == nil {
		return ""
	}

	var parts []string
	for sib := header.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode || sib.Data != "div" {
			continue
		}
		if hasClass(sib, "docLayoutMarginTopMore") {
			break
		}
		for _, dd := range findNodes(sib, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "dd"
		}) {
			parts = append(parts, textContent(dd))
		}
	}

	section := strings.Join(parts, "\n\n")
	section = beschlussFix.ReplaceAllString(section, "### Beschluss\n\n$1")
	return cleanText(section)
}

// HTML traversal helpers.

func findNode(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func findNodes(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", ""))
}
