// Package importer reads the registration desk's orgaccept HTML export and hands the
// records to the registrations import, either over HTTP or straight into the database.
package importer

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding/charmap"

	"github.com/benasque-conf/participants/internal/models"
)

// Status codes used by the export. REJ and unknown codes are skipped.
var statusCodes = map[string]string{
	"ACC":  models.StatusAccepted,
	"VIP":  models.StatusInvited,
	"CANC": models.StatusCancelled,
}

var (
	mailtoRe     = regexp.MustCompile(`mailto:([^"]+)`)
	emailRe      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	emptyParenRe = regexp.MustCompile(`\s*\(\s*\)\s*$`)
	datesRe      = regexp.MustCompile(`([A-Za-z]{3})\s+(\d{1,2})/([A-Za-z]{3})\s+(\d{1,2})`)
)

// Parse extracts registrations from an orgaccept page. Pages saved through a browser's
// view-source are unwrapped first. Input that is not UTF-8 is read as Windows-1252.
func Parse(r io.Reader) ([]models.RegistrationRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	if !utf8.Valid(raw) {
		raw, err = charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode export: %w", err)
		}
	}
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	if isViewSource(doc) {
		var sb strings.Builder
		for _, td := range findAll(doc, func(n *html.Node) bool { return n.DataAtom == atom.Td && hasClass(n, "line-content") }) {
			sb.WriteString(textOf(td))
			sb.WriteByte('\n')
		}
		doc, err = html.Parse(strings.NewReader(sb.String()))
		if err != nil {
			return nil, fmt.Errorf("parse unwrapped export: %w", err)
		}
	}
	return parseRows(doc), nil
}

func isViewSource(doc *html.Node) bool {
	return findFirst(doc, func(n *html.Node) bool {
		return (n.DataAtom == atom.Span && hasClass(n, "html-tag")) ||
			(n.DataAtom == atom.Td && hasClass(n, "line-content"))
	}) != nil
}

func parseRows(doc *html.Node) []models.RegistrationRecord {
	var out []models.RegistrationRecord
	for _, tr := range findAll(doc, func(n *html.Node) bool { return n.DataAtom == atom.Tr }) {
		cells := findAll(tr, func(n *html.Node) bool { return n.DataAtom == atom.Td })
		if len(cells) < 3 {
			continue
		}
		font := findFirst(cells[0], func(n *html.Node) bool { return n.DataAtom == atom.Font && attr(n, "color") != "" })
		if font == nil {
			continue
		}
		code := strings.TrimSpace(textOf(font))
		status, ok := statusCodes[code]
		if !ok {
			continue
		}
		rec := models.RegistrationRecord{Status: status}
		readInfo(cells[1], &rec)
		readDates(cells[2], &rec)
		if rec.Email != "" {
			out = append(out, rec)
		}
	}
	return out
}

// readInfo fills email, name and affiliation from a cell shaped like
// <b>LAST, First:</b> Institute (Country) <a href="mailto:...">.
func readInfo(cell *html.Node, rec *models.RegistrationRecord) {
	link := findFirst(cell, func(n *html.Node) bool {
		return n.DataAtom == atom.A && strings.Contains(attr(n, "href"), "mailto:")
	})
	if link != nil {
		if m := mailtoRe.FindStringSubmatch(attr(link, "href")); m != nil {
			rec.Email = strings.TrimSpace(m[1])
		}
	}

	if b := findFirst(cell, func(n *html.Node) bool { return n.DataAtom == atom.B }); b != nil {
		rec.FirstName, rec.LastName = splitName(strings.TrimRight(strings.TrimSpace(textOf(b)), ":"))
	}

	text := textOf(cell)
	if _, after, found := strings.Cut(text, ":"); found {
		aff := emailRe.ReplaceAllString(strings.TrimSpace(after), "")
		aff = emptyParenRe.ReplaceAllString(aff, "")
		rec.Affiliation = strings.TrimSpace(aff)
	}
}

// splitName handles "LAST, First" and falls back to treating the last word as the surname.
func splitName(full string) (first, last string) {
	if l, f, ok := strings.Cut(full, ","); ok {
		return strings.TrimSpace(f), strings.TrimSpace(l)
	}
	parts := strings.Fields(full)
	if len(parts) >= 2 {
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
	return full, ""
}

func readDates(cell *html.Node, rec *models.RegistrationRecord) {
	m := datesRe.FindStringSubmatch(strings.TrimSpace(textOf(cell)))
	if m == nil {
		return
	}
	rec.StartDate = m[1] + " " + m[2]
	rec.EndDate = m[3] + " " + m[4]
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if n := findFirst(c, match); n != nil {
			return n
		}
	}
	return nil
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			out = append(out, c)
		}
		out = append(out, findAll(c, match)...)
	}
	return out
}
