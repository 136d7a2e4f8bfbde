package models

import (
	"strings"
	"time"
)

// Participant is a self-registered conference attendee, unique by email.
type Participant struct {
	ID                      int64      `json:"id"`
	FirstName               string     `json:"first_name"`
	LastName                string     `json:"last_name"`
	Email                   string     `json:"email"`
	EmailPublic             bool       `json:"email_public"`
	Interests               string     `json:"interests"`
	Description             string     `json:"description"`
	ArxivLinks              ArxivLinks `json:"arxiv_links"`
	PhotoPath               *string    `json:"photo_path"`
	TalkFlash               bool       `json:"talk_flash"`
	TalkContributed         bool       `json:"talk_contributed"`
	TalkTitle               string     `json:"talk_title"`
	TalkAbstract            string     `json:"talk_abstract"`
	TalkFlashAccepted       bool       `json:"talk_flash_accepted"`
	TalkContributedAccepted Acceptance `json:"talk_contributed_accepted"`
	TalkStatusChangedAt     int64      `json:"talk_status_changed_at"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// InterestTags splits the comma-joined interests into trimmed, non-empty tags.
func (p *Participant) InterestTags() []string {
	var tags []string
	for _, t := range strings.Split(p.Interests, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ParticipantView is a participant joined with its registration row, if any.
type ParticipantView struct {
	Participant
	RegistrationStatus      *string `json:"registration_status"`
	RegistrationAffiliation *string `json:"registration_affiliation"`
	RegistrationFirstName   *string `json:"registration_first_name"`
	RegistrationLastName    *string `json:"registration_last_name"`
	StartDate               *string `json:"start_date"`
	EndDate                 *string `json:"end_date"`
}

// Affiliation returns the registration affiliation or "".
func (v *ParticipantView) Affiliation() string {
	if v.RegistrationAffiliation == nil {
		return ""
	}
	return *v.RegistrationAffiliation
}
