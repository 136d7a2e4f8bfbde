package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/pkg/apperr"
)

const (
	dayLayout   = "2006-01-02"
	labelLayout = "Jan 2"
)

// Calendar knows the conference dates and resolves registration date labels against them.
type Calendar struct {
	Start time.Time
	End   time.Time
}

// NewCalendar truncates start and end to calendar days in UTC.
func NewCalendar(start, end time.Time) Calendar {
	return Calendar{Start: truncateDay(start), End: truncateDay(end)}
}

// Week is a Monday to Friday span, numbered from 1.
type Week struct {
	Number int       `json:"number"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Label renders the week as "Week 1 (Jul 21 - Jul 25)".
func (w Week) Label() string {
	return fmt.Sprintf("Week %d (%s - %s)", w.Number, w.Start.Format(labelLayout), w.End.Format(labelLayout))
}

// Weeks returns the conference weeks. Week 1 begins on the Monday of the start date
// when the start is a weekday, otherwise on the following Monday. Weeks continue while
// their Monday is on or before the conference end.
func (c Calendar) Weeks() []Week {
	monday := c.Start
	switch wd := monday.Weekday(); wd {
	case time.Saturday:
		monday = monday.AddDate(0, 0, 2)
	case time.Sunday:
		monday = monday.AddDate(0, 0, 1)
	default:
		monday = monday.AddDate(0, 0, -int(wd-time.Monday))
	}
	var weeks []Week
	for n := 1; !monday.After(c.End); n++ {
		weeks = append(weeks, Week{Number: n, Start: monday, End: monday.AddDate(0, 0, 4)})
		monday = monday.AddDate(0, 0, 7)
	}
	return weeks
}

// Week returns week n, if the conference has one.
func (c Calendar) Week(n int) (Week, bool) {
	weeks := c.Weeks()
	if n < 1 || n > len(weeks) {
		return Week{}, false
	}
	return weeks[n-1], true
}

// ParseDay parses a YYYY-MM-DD query value.
func (c Calendar) ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Validation("Invalid day %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseLabel resolves a short label such as "Jul 20" into the conference year. Labels
// that would fall more than half a year before the start roll into the next year so
// events spanning new year resolve correctly.
func (c Calendar) ParseLabel(label string) (time.Time, bool) {
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(labelLayout, label)
	if err != nil {
		return time.Time{}, false
	}
	t = time.Date(c.Start.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if t.Before(c.Start.AddDate(0, 0, -180)) {
		t = t.AddDate(1, 0, 0)
	}
	return t, true
}

// Stay is the resolved attendance range of one participant. Known is false when the
// participant has no usable registration dates; such participants count as present every day.
type Stay struct {
	Known bool
	Start time.Time
	End   time.Time
}

// Stay resolves the participant's registration dates.
func (c Calendar) Stay(p *models.ParticipantView) Stay {
	if p.StartDate == nil || p.EndDate == nil {
		return Stay{}
	}
	start, ok := c.ParseLabel(*p.StartDate)
	if !ok {
		return Stay{}
	}
	end, ok := c.ParseLabel(*p.EndDate)
	if !ok {
		return Stay{}
	}
	return Stay{Known: true, Start: start, End: end}
}

// PresentOn reports whether day falls within the stay, inclusive.
func (s Stay) PresentOn(day time.Time) bool {
	if !s.Known {
		return true
	}
	day = truncateDay(day)
	return !day.Before(s.Start) && !day.After(s.End)
}

// overlaps applies start <= weekEnd && end >= weekStart.
func (s Stay) overlaps(w Week) bool {
	if !s.Known {
		return true
	}
	return !s.Start.After(w.End) && !s.End.Before(w.Start)
}

// PresentInWeek reports whether the stay overlaps week n.
func (c Calendar) PresentInWeek(s Stay, n int) bool {
	w, ok := c.Week(n)
	if !ok {
		return false
	}
	return s.overlaps(w)
}

// PresentOnlyInWeek reports whether the stay overlaps week n and no other conference week.
func (c Calendar) PresentOnlyInWeek(s Stay, n int) bool {
	weeks := c.Weeks()
	if n < 1 || n > len(weeks) {
		return false
	}
	for _, w := range weeks {
		if s.overlaps(w) != (w.Number == n) {
			return false
		}
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
