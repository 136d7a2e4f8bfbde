package models

// TalkStatusEvent is broadcast to admin views after a contributed-talk decision changes.
type TalkStatusEvent struct {
	Email                   string     `json:"email"`
	TalkContributedAccepted Acceptance `json:"talk_contributed_accepted"`
	ChangedAt               int64      `json:"changed_at"`
}
