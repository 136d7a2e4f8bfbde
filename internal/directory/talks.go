package directory

import (
	"sort"
	"strings"

	"github.com/benasque-conf/participants/internal/models"
)

// Talk list filters.
const (
	TalkFilterAll             = "all"
	TalkFilterFlash           = "flash"
	TalkFilterContributed     = "contributed"
	TalkFilterContribAccepted = "contrib-accepted"
	TalkFilterContribPending  = "contrib-pending"
	TalkFilterContribRejected = "contrib-rejected"
)

// Talk list sorts.
const (
	TalkSortName  = "name"
	TalkSortType  = "type"
	TalkSortTitle = "title"
)

// ValidTalkFilter reports whether f is a known talk filter. Empty means all.
func ValidTalkFilter(f string) bool {
	switch f {
	case "", TalkFilterAll, TalkFilterFlash, TalkFilterContributed,
		TalkFilterContribAccepted, TalkFilterContribPending, TalkFilterContribRejected:
		return true
	}
	return false
}

// MatchesTalkFilter applies one talk filter. Flash and contributed filters include
// participants who submitted both kinds.
func MatchesTalkFilter(p *models.Participant, filter string) bool {
	switch filter {
	case TalkFilterFlash:
		return p.TalkFlash
	case TalkFilterContributed:
		return p.TalkContributed
	case TalkFilterContribAccepted:
		return p.TalkContributed && p.TalkContributedAccepted == models.Accepted
	case TalkFilterContribPending:
		return p.TalkContributed && p.TalkContributedAccepted == models.Pending
	case TalkFilterContribRejected:
		return p.TalkContributed && p.TalkContributedAccepted == models.Rejected
	default:
		return p.TalkFlash || p.TalkContributed
	}
}

// FilterTalks keeps the submissions matching filter and sorts them.
func FilterTalks(list []models.Participant, filter, by string) []models.Participant {
	out := make([]models.Participant, 0, len(list))
	for i := range list {
		if MatchesTalkFilter(&list[i], filter) {
			out = append(out, list[i])
		}
	}
	SortTalks(out, by)
	return out
}

// talkTypeRank orders both > contributed only > flash only.
func talkTypeRank(p *models.Participant) int {
	switch {
	case p.TalkFlash && p.TalkContributed:
		return 3
	case p.TalkContributed:
		return 2
	case p.TalkFlash:
		return 1
	}
	return 0
}

// SortTalks orders talks by name (last, first), by type, or by title. Unknown keys sort by name.
func SortTalks(list []models.Participant, by string) {
	byName := func(i, j int) bool {
		li, lj := strings.ToLower(list[i].LastName), strings.ToLower(list[j].LastName)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(list[i].FirstName) < strings.ToLower(list[j].FirstName)
	}
	switch by {
	case TalkSortType:
		sort.SliceStable(list, func(i, j int) bool {
			ri, rj := talkTypeRank(&list[i]), talkTypeRank(&list[j])
			if ri != rj {
				return ri > rj
			}
			return byName(i, j)
		})
	case TalkSortTitle:
		sort.SliceStable(list, func(i, j int) bool {
			ti, tj := strings.ToLower(list[i].TalkTitle), strings.ToLower(list[j].TalkTitle)
			if ti != tj {
				return ti < tj
			}
			return byName(i, j)
		})
	default:
		sort.SliceStable(list, byName)
	}
}

// TalkStats counts submissions and decisions.
type TalkStats struct {
	Total               int `json:"total"`
	FlashOnly           int `json:"flash_only"`
	ContributedOnly     int `json:"contributed_only"`
	Both                int `json:"both"`
	FlashAccepted       int `json:"flash_accepted"`
	ContributedAccepted int `json:"contributed_accepted"`
	ContributedPending  int `json:"contributed_pending"`
	ContributedRejected int `json:"contributed_rejected"`
}

// ComputeTalkStats counts over every participant with at least one submission.
func ComputeTalkStats(list []models.Participant) TalkStats {
	var s TalkStats
	for i := range list {
		p := &list[i]
		if !p.TalkFlash && !p.TalkContributed {
			continue
		}
		s.Total++
		switch {
		case p.TalkFlash && p.TalkContributed:
			s.Both++
		case p.TalkFlash:
			s.FlashOnly++
		default:
			s.ContributedOnly++
		}
		if p.TalkFlash {
			s.FlashAccepted++
		}
		if p.TalkContributed {
			switch p.TalkContributedAccepted {
			case models.Accepted:
				s.ContributedAccepted++
			case models.Rejected:
				s.ContributedRejected++
			default:
				s.ContributedPending++
			}
		}
	}
	return s
}
