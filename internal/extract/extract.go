package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Document is a simplified representation of extracted page content.
type Document struct {
	Title string
	Text  string
	// Root names the selector that produced Text, e.g. "main" or "body".
	Root string
}

// Boilerplate lists the elements removed before the content root is chosen.
const Boilerplate = "script, style, noscript, iframe, template, nav, footer, header, aside"

// MainSelectors is the priority order used to pick the content root. The
// first selector with a match wins; <body> is the fallback.
var MainSelectors = []string{
	"main",
	"article",
	".content, .main",
}

const fallbackSelector = "body"

// FromHTML extracts readable text from HTML. It never fails: input that
// cannot be read yields an empty Document.
func FromHTML(input []byte) Document {
	doc, _ := Parse(input)
	return doc
}

// Parse is FromHTML with the read error exposed.
func Parse(input []byte) (Document, error) {
	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}

	title := findTitle(gq)
	gq.Find(Boilerplate).Remove()
	removeConsentBanners(gq)

	root, name := SelectMain(gq)
	var b strings.Builder
	for _, n := range root.Nodes {
		collectText(&b, n, false)
	}
	text := norm.NFC.String(normalizeWhitespace(b.String()))
	return Document{Title: title, Text: text, Root: name}, nil
}

// SelectMain walks MainSelectors in order and returns the first match along
// with the selector that matched.
func SelectMain(doc *goquery.Document) (*goquery.Selection, string) {
	for _, sel := range MainSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s, sel
		}
	}
	if s := doc.Find(fallbackSelector).First(); s.Length() > 0 {
		return s, fallbackSelector
	}
	return doc.Selection, ""
}

func findTitle(doc *goquery.Document) string {
	t := doc.Find("head > title").First()
	if t.Length() == 0 {
		t = doc.Find("title").First()
	}
	return strings.TrimSpace(collapseSpaces(t.Text()))
}

// removeConsentBanners drops cookie and consent overlays. Content roots, and
// anything containing one, are never removed.
func removeConsentBanners(doc *goquery.Document) {
	roots := strings.Join(MainSelectors, ", ")
	doc.Find("[id], [class], [role], [aria-label]").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 || !isBoilerplateContainer(s.Nodes[0]) {
			return
		}
		if s.Is(roots) || s.Find(roots).Length() > 0 {
			return
		}
		s.Remove()
	})
}

func collectText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "img", "svg", "picture", "video", "audio", "canvas", "script", "style":
			return
		case "pre":
			inPre = true
			b.WriteString("\n")
		case "br", "hr":
			b.WriteString("\n")
		case "p", "div", "section", "h1", "h2", "h3", "h4", "h5", "h6", "li", "tr", "blockquote", "ul", "ol", "table", "dl", "dt", "dd", "figcaption":
			b.WriteString("\n")
		case "td", "th":
			b.WriteString(" ")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.ReplaceAll(data, "\t", " ")
			data = strings.ReplaceAll(data, "\r", " ")
			data = strings.ReplaceAll(data, "\n", " ")
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre)
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "table":
			b.WriteString("\n\n")
		case "li", "tr", "div", "section", "pre", "dt", "dd":
			b.WriteString("\n")
		}
	}
}

// bannerTokens are attribute fragments used by consent overlays. Bare words
// like "cookie" are not enough: recipes and privacy guides use them too.
var bannerTokens = []string{
	"cookie-banner", "cookie-bar", "cookie-notice", "cookie-consent", "cookie-popup",
	"consent-banner", "consent-manager", "consent-dialog", "gdpr-banner", "gdpr-consent",
}

// isBoilerplateContainer reports whether n looks like a cookie or consent
// banner, judged by its id, class, aria-label and role.
func isBoilerplateContainer(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if strings.EqualFold(n.Data, "body") || strings.EqualFold(n.Data, "html") {
		return false
	}
	for _, attr := range n.Attr {
		val := strings.ToLower(strings.TrimSpace(attr.Val))
		switch strings.ToLower(attr.Key) {
		case "role":
			if val == "dialog" || val == "alertdialog" {
				return true
			}
		case "id", "class", "aria-label":
			if containsAny(bannerKey(val), bannerTokens) {
				return true
			}
		}
	}
	return false
}

// bannerKey folds separators so "cookieBanner", "cookie_banner" and
// "Cookie banner" all read as "cookie-banner".
func bannerKey(v string) string {
	v = strings.NewReplacer("_", "-", " ", "-").Replace(v)
	for _, w := range []string{"cookie", "consent", "gdpr"} {
		v = strings.ReplaceAll(v, w+"-", w)
		v = strings.ReplaceAll(v, w, w+"-")
	}
	return v
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			// Keep at most one consecutive blank
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
