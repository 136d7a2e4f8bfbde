package participants

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/pkg/apperr"
)

var validate = validator.New()

// ValidEmail reports whether s is a well-formed email address.
func ValidEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// normalize trims free-text fields in place and checks the required ones.
func normalize(p *models.Participant) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = strings.TrimSpace(p.Email)
	p.Interests = strings.TrimSpace(p.Interests)
	p.Description = strings.TrimSpace(p.Description)
	p.TalkTitle = strings.TrimSpace(p.TalkTitle)
	p.TalkAbstract = strings.TrimSpace(p.TalkAbstract)

	switch {
	case p.FirstName == "":
		return apperr.Validation("Field 'first_name' is required")
	case p.LastName == "":
		return apperr.Validation("Field 'last_name' is required")
	case p.Email == "":
		return apperr.Validation("Field 'email' is required")
	case !ValidEmail(p.Email):
		return apperr.Validation("Invalid email format")
	}
	return nil
}

// applyTalkPolicy derives the acceptance fields of next. prev is nil on create.
//
// Flash talks are accepted exactly when submitted. A contributed talk starts pending,
// returns to pending when it is withdrawn or newly submitted, and otherwise keeps the
// previous organizer decision.
func applyTalkPolicy(prev, next *models.Participant) {
	next.TalkFlashAccepted = next.TalkFlash
	switch {
	case !next.TalkContributed:
		next.TalkContributedAccepted = models.Pending
	case prev == nil || !prev.TalkContributed:
		next.TalkContributedAccepted = models.Pending
	default:
		next.TalkContributedAccepted = prev.TalkContributedAccepted
	}
	if prev != nil {
		next.TalkStatusChangedAt = prev.TalkStatusChangedAt
	}
}
