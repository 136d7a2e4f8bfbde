// Package talks implements the organizer side of talk submissions: the guarded
// contributed-talk decision, listings and export.
package talks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/pkg/apperr"
	"github.com/benasque-conf/participants/pkg/database"
)

// Repository handles talk status persistence.
type Repository struct {
	db  *database.DB
	now func() time.Time
}

// NewRepository creates a talks repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// StatusResult is returned by a successful contributed-status update.
type StatusResult struct {
	// ReloadNeeded is set when another participant's decision changed after the
	// caller's snapshot, so the caller's list view is stale.
	ReloadNeeded bool  `json:"reload_needed"`
	ChangedAt    int64 `json:"changed_at"`
}

// Now returns the server clock in unix milliseconds, the unit used for snapshots.
func (r *Repository) Now() int64 {
	return r.now().UnixMilli()
}

// UpdateContributedStatus writes value as the contributed-talk decision for email, provided
// the stored decision still equals expected. snapshot is the unix millisecond time at which
// the caller loaded its view.
func (r *Repository) UpdateContributedStatus(ctx context.Context, email string, value, expected models.Acceptance, snapshot int64) (*StatusResult, error) {
	if !value.Valid() {
		return nil, apperr.Validation("Invalid contributed acceptance status value")
	}
	if !expected.Valid() {
		return nil, apperr.Validation("Invalid expected acceptance status value")
	}

	var res StatusResult
	err := database.WithTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		var contributed bool
		var current models.Acceptance
		err := tx.QueryRowContext(ctx,
			`SELECT talk_contributed, talk_contributed_accepted FROM participants WHERE email = $1`, email,
		).Scan(&contributed, &current)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Participant not found")
		}
		if err != nil {
			return fmt.Errorf("read talk status: %w", err)
		}
		if current != expected {
			return apperr.Conflict("Talk status was changed by another admin since page load (now %s). Reload and try again.", current)
		}
		if !contributed && value != models.Pending {
			return apperr.Validation("Participant has not submitted a contributed talk")
		}

		var others int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM participants WHERE email <> $1 AND talk_status_changed_at > $2`, email, snapshot,
		).Scan(&others)
		if err != nil {
			return fmt.Errorf("check concurrent changes: %w", err)
		}
		res.ReloadNeeded = others > 0

		now := r.now()
		res.ChangedAt = now.UnixMilli()
		// The guard is repeated in the write so concurrent transactions cannot both pass it.
		out, err := tx.ExecContext(ctx,
			`UPDATE participants SET talk_contributed_accepted = $1, talk_status_changed_at = $2, updated_at = $3
			WHERE email = $4 AND COALESCE(talk_contributed_accepted, -1) = $5`,
			value, res.ChangedAt, now.UTC(), email, expected.Code())
		if err != nil {
			return fmt.Errorf("update talk status: %w", err)
		}
		n, err := out.RowsAffected()
		if err != nil {
			return fmt.Errorf("update talk status: %w", err)
		}
		if n == 0 {
			return apperr.Conflict("Talk status was changed by another admin since page load. Reload and try again.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListSubmissions returns every participant with a flash or contributed submission,
// ordered by last then first name.
func (r *Repository) ListSubmissions(ctx context.Context) ([]models.Participant, error) {
	const q = `SELECT id, first_name, last_name, email, talk_flash, talk_contributed, talk_title, talk_abstract,
		talk_flash_accepted, talk_contributed_accepted, talk_status_changed_at
		FROM participants
		WHERE talk_flash OR talk_contributed
		ORDER BY last_name, first_name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list talks: %w", err)
	}
	defer rows.Close()
	list := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.TalkFlash, &p.TalkContributed,
			&p.TalkTitle, &p.TalkAbstract, &p.TalkFlashAccepted, &p.TalkContributedAccepted, &p.TalkStatusChangedAt); err != nil {
			return nil, fmt.Errorf("scan talk: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
