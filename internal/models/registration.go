package models

import "time"

// Registration statuses accepted by the import.
const (
	StatusAccepted  = "ACCEPTED"
	StatusInvited   = "INVITED"
	StatusCancelled = "CANCELLED"
)

// RegistrationStatuses lists the valid statuses in display order.
var RegistrationStatuses = []string{StatusAccepted, StatusInvited, StatusCancelled}

// ValidRegistrationStatus reports whether s is a known status.
func ValidRegistrationStatus(s string) bool {
	for _, v := range RegistrationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Registration is an externally imported attendance record.
type Registration struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Status      string    `json:"status"`
	Affiliation string    `json:"affiliation"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RegistrationRecord is one entry of an import batch.
type RegistrationRecord struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Status      string `json:"status"`
	Affiliation string `json:"affiliation,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// ImportResult summarises an import batch.
type ImportResult struct {
	Updated        int      `json:"updated"`
	Errors         []string `json:"errors"`
	TotalProcessed int      `json:"total_processed"`
}
