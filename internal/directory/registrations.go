package directory

import (
	"strings"

	"github.com/benasque-conf/participants/internal/models"
)

// MatchesRegistration applies the status filter (empty for any) and a case-insensitive
// search over name, email and affiliation.
func MatchesRegistration(r *models.Registration, status, q string) bool {
	if status != "" && r.Status != status {
		return false
	}
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	name := strings.ToLower(r.LastName + ", " + r.FirstName + " " + r.FirstName + " " + r.LastName)
	return strings.Contains(name, q) ||
		strings.Contains(strings.ToLower(r.Email), q) ||
		strings.Contains(strings.ToLower(r.Affiliation), q)
}

// FilterRegistrations keeps order and returns the matching rows.
func FilterRegistrations(list []models.Registration, status, q string) []models.Registration {
	out := make([]models.Registration, 0, len(list))
	for i := range list {
		if MatchesRegistration(&list[i], status, q) {
			out = append(out, list[i])
		}
	}
	return out
}

// RegistrationStats counts rows per status and adds a TOTAL entry.
func RegistrationStats(list []models.Registration) map[string]int {
	stats := map[string]int{"TOTAL": len(list)}
	for _, s := range models.RegistrationStatuses {
		stats[s] = 0
	}
	for i := range list {
		stats[list[i].Status]++
	}
	return stats
}
