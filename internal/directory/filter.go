// Package directory holds the pure filtering, sorting and calendar rules applied
// to participant, talk and registration read models.
package directory

import (
	"strings"
	"time"

	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/pkg/apperr"
)

// MatchesText reports whether q (case-insensitive) occurs in the interests, first name
// or last name. An empty q matches everyone.
func MatchesText(p *models.ParticipantView, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Interests), q) ||
		strings.Contains(strings.ToLower(p.FirstName), q) ||
		strings.Contains(strings.ToLower(p.LastName), q)
}

// MatchesInterest reports whether interest (case-insensitive) occurs in the interests field.
func MatchesInterest(p *models.ParticipantView, interest string) bool {
	interest = strings.ToLower(strings.TrimSpace(interest))
	if interest == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Interests), interest)
}

// Query describes one directory listing request.
type Query struct {
	Text     string
	Interest string
	Day      string // YYYY-MM-DD; empty for any day
	Week     int    // 0 for any week
	OnlyWeek bool   // with Week: present in that week and no other
	Sort     string // SortFirstName, SortLastName or SortRandom
	Seed     uint64 // shuffle seed for SortRandom
}

// Filter returns the participants that pass every active filter in q in q.Sort order.
// A random order is drawn over the whole list before filtering, so narrowing the
// filters with the same seed keeps the remaining participants in the same relative order.
// The input slice is not modified.
func Filter(list []models.ParticipantView, q Query, cal Calendar) ([]models.ParticipantView, error) {
	var day time.Time
	if q.Day != "" {
		d, err := cal.ParseDay(q.Day)
		if err != nil {
			return nil, err
		}
		day = d
	}
	if q.Week != 0 {
		if _, ok := cal.Week(q.Week); !ok {
			return nil, apperr.Validation("Unknown week %d", q.Week)
		}
	}

	src := list
	if q.Sort == SortRandom {
		src = append([]models.ParticipantView(nil), list...)
		Sort(src, SortRandom, q.Seed)
	}

	out := make([]models.ParticipantView, 0, len(src))
	for i := range src {
		p := &src[i]
		if !MatchesText(p, q.Text) || !MatchesInterest(p, q.Interest) {
			continue
		}
		stay := cal.Stay(p)
		if !day.IsZero() && !stay.PresentOn(day) {
			continue
		}
		if q.Week != 0 {
			if q.OnlyWeek {
				if !cal.PresentOnlyInWeek(stay, q.Week) {
					continue
				}
			} else if !cal.PresentInWeek(stay, q.Week) {
				continue
			}
		}
		out = append(out, *p)
	}
	if q.Sort != SortRandom {
		Sort(out, q.Sort, q.Seed)
	}
	return out, nil
}
