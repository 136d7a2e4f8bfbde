package directory

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/benasque-conf/participants/internal/models"
)

// Participant sort orders.
const (
	SortFirstName = "first_name"
	SortLastName  = "last_name"
	SortRandom    = "random"
)

// Sort orders list in place. Name sorts compare case-insensitively and are stable.
// SortRandom applies a uniform shuffle seeded by seed, so the same seed gives the same
// order and a client only sees a new order when it re-sorts with a new seed.
// Unknown keys leave the list in store order.
func Sort(list []models.ParticipantView, by string, seed uint64) {
	switch by {
	case SortFirstName:
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(list[i].FirstName) < strings.ToLower(list[j].FirstName)
		})
	case SortLastName:
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(list[i].LastName) < strings.ToLower(list[j].LastName)
		})
	case SortRandom:
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		r.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
	}
}
