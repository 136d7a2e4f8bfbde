package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ArxivLink is a paper reference on a participant profile. Title is nil when the
// metadata lookup found nothing.
type ArxivLink struct {
	URL   string  `json:"url"`
	Title *string `json:"title"`
}

// UnmarshalJSON accepts either a bare URL string or an {"url", "title"} object.
func (l *ArxivLink) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = ArxivLink{URL: strings.TrimSpace(s)}
		return nil
	}
	var obj struct {
		URL   string  `json:"url"`
		Title *string `json:"title"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("arxiv link: %w", err)
	}
	l.URL = strings.TrimSpace(obj.URL)
	l.Title = obj.Title
	if l.Title != nil && strings.TrimSpace(*l.Title) == "" {
		l.Title = nil
	}
	return nil
}

// ArxivLinks is stored as a JSON array in a text column.
type ArxivLinks []ArxivLink

// Compact trims every URL and drops the links left without one.
func (ls ArxivLinks) Compact() ArxivLinks {
	out := make(ArxivLinks, 0, len(ls))
	for _, l := range ls {
		l.URL = strings.TrimSpace(l.URL)
		if l.URL != "" {
			out = append(out, l)
		}
	}
	return out
}

// Cap returns at most max links, keeping the earliest ones.
func (ls ArxivLinks) Cap(max int) ArxivLinks {
	if max >= 0 && len(ls) > max {
		return ls[:max]
	}
	return ls
}

// URLs returns the link URLs in order.
func (ls ArxivLinks) URLs() []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.URL)
	}
	return out
}

// Value implements driver.Valuer.
func (ls ArxivLinks) Value() (driver.Value, error) {
	if ls == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]ArxivLink(ls))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Empty or NULL columns scan to an empty list.
func (ls *ArxivLinks) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*ls = ArxivLinks{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into ArxivLinks", src)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		*ls = ArxivLinks{}
		return nil
	}
	var out []ArxivLink
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode arxiv_links: %w", err)
	}
	if out == nil {
		out = []ArxivLink{}
	}
	*ls = out
	return nil
}
