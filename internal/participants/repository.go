package participants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/pkg/apperr"
	"github.com/benasque-conf/participants/pkg/database"
)

// DefaultMaxArxivLinks is used when the repository is built with a non-positive cap.
const DefaultMaxArxivLinks = 3

const participantColumns = `p.id, p.first_name, p.last_name, p.email, p.email_public, p.interests, p.description,
	p.arxiv_links, p.photo_path, p.talk_flash, p.talk_contributed, p.talk_title, p.talk_abstract,
	p.talk_flash_accepted, p.talk_contributed_accepted, p.talk_status_changed_at, p.created_at, p.updated_at`

const viewSelect = `SELECT ` + participantColumns + `,
	r.status, r.affiliation, r.first_name, r.last_name, r.start_date, r.end_date
	FROM participants p
	LEFT JOIN registrations r ON r.email = p.email`

// Repository handles participant persistence.
type Repository struct {
	db       *database.DB
	maxLinks int
	now      func() time.Time
}

// NewRepository creates a participants repository. maxArxivLinks caps stored links.
func NewRepository(db *database.DB, maxArxivLinks int) *Repository {
	if maxArxivLinks <= 0 {
		maxArxivLinks = DefaultMaxArxivLinks
	}
	return &Repository{db: db, maxLinks: maxArxivLinks, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanParticipant(row rowScanner, p *models.Participant, extra ...interface{}) error {
	dest := []interface{}{
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.EmailPublic, &p.Interests, &p.Description,
		&p.ArxivLinks, &p.PhotoPath, &p.TalkFlash, &p.TalkContributed, &p.TalkTitle, &p.TalkAbstract,
		&p.TalkFlashAccepted, &p.TalkContributedAccepted, &p.TalkStatusChangedAt, &p.CreatedAt, &p.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func scanView(row rowScanner) (*models.ParticipantView, error) {
	var v models.ParticipantView
	err := scanParticipant(row, &v.Participant,
		&v.RegistrationStatus, &v.RegistrationAffiliation, &v.RegistrationFirstName,
		&v.RegistrationLastName, &v.StartDate, &v.EndDate)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a new participant. Talk acceptance is derived: flash accepted when
// submitted, contributed always pending.
func (r *Repository) Create(ctx context.Context, p *models.Participant) error {
	if err := normalize(p); err != nil {
		return err
	}
	applyTalkPolicy(nil, p)
	p.ArxivLinks = p.ArxivLinks.Cap(r.maxLinks)
	now := r.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	const q = `INSERT INTO participants (first_name, last_name, email, email_public, interests, description,
		arxiv_links, photo_path, talk_flash, talk_contributed, talk_title, talk_abstract,
		talk_flash_accepted, talk_contributed_accepted, talk_status_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, q,
		p.FirstName, p.LastName, p.Email, p.EmailPublic, p.Interests, p.Description,
		p.ArxivLinks, p.PhotoPath, p.TalkFlash, p.TalkContributed, p.TalkTitle, p.TalkAbstract,
		p.TalkFlashAccepted, p.TalkContributedAccepted, p.TalkStatusChangedAt, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("A participant with this email already exists")
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// Update rewrites the participant stored at originalEmail and returns the previous row.
// The email itself is never changed. A nil PhotoPath keeps the stored photo.
func (r *Repository) Update(ctx context.Context, originalEmail string, p *models.Participant) (*models.Participant, error) {
	var prev *models.Participant
	err := database.WithTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		var err error
		prev, err = getParticipant(ctx, tx, strings.TrimSpace(originalEmail))
		if err != nil {
			return err
		}
		p.Email = prev.Email
		if err := normalize(p); err != nil {
			return err
		}
		p.ArxivLinks = p.ArxivLinks.Cap(r.maxLinks)
		applyTalkPolicy(prev, p)
		if p.PhotoPath == nil {
			p.PhotoPath = prev.PhotoPath
		}
		now := r.now().UTC()
		if p.TalkContributedAccepted != prev.TalkContributedAccepted {
			p.TalkStatusChangedAt = now.UnixMilli()
		}
		p.ID, p.CreatedAt, p.UpdatedAt = prev.ID, prev.CreatedAt, now

		const q = `UPDATE participants SET first_name = $1, last_name = $2, email_public = $3, interests = $4,
			description = $5, arxiv_links = $6, photo_path = $7, talk_flash = $8, talk_contributed = $9,
			talk_title = $10, talk_abstract = $11, talk_flash_accepted = $12, talk_contributed_accepted = $13,
			talk_status_changed_at = $14, updated_at = $15
			WHERE email = $16`
		_, err = tx.ExecContext(ctx, q,
			p.FirstName, p.LastName, p.EmailPublic, p.Interests,
			p.Description, p.ArxivLinks, p.PhotoPath, p.TalkFlash, p.TalkContributed,
			p.TalkTitle, p.TalkAbstract, p.TalkFlashAccepted, p.TalkContributedAccepted,
			p.TalkStatusChangedAt, p.UpdatedAt, p.Email)
		if err != nil {
			return fmt.Errorf("update participant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}

// Delete removes the participant row. Photo removal is the caller's job.
func (r *Repository) Delete(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM participants WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("Participant not found")
	}
	return nil
}

// Get returns the bare participant row (no registration join).
func (r *Repository) Get(ctx context.Context, email string) (*models.Participant, error) {
	return getParticipant(ctx, r.db, email)
}

func getParticipant(ctx context.Context, q database.Querier, email string) (*models.Participant, error) {
	var p models.Participant
	row := q.QueryRowContext(ctx, `SELECT `+participantColumns+` FROM participants p WHERE p.email = $1`, email)
	if err := scanParticipant(row, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Participant not found")
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &p, nil
}

// GetByEmail returns the participant joined with its registration.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.ParticipantView, error) {
	v, err := scanView(r.db.QueryRowContext(ctx, viewSelect+` WHERE p.email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Participant not found")
		}
		return nil, fmt.Errorf("get participant view: %w", err)
	}
	return v, nil
}

// GetAll returns every participant joined with its registration, ordered by first then last name.
func (r *Repository) GetAll(ctx context.Context) ([]models.ParticipantView, error) {
	rows, err := r.db.QueryContext(ctx, viewSelect+` ORDER BY p.first_name, p.last_name`)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()
	list := []models.ParticipantView{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// AllInterestTags returns every distinct interest tag, sorted ascending.
func (r *Repository) AllInterestTags(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT interests FROM participants WHERE interests <> ''`)
	if err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	defer rows.Close()
	seen := make(map[string]struct{})
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.Interests); err != nil {
			return nil, fmt.Errorf("scan interests: %w", err)
		}
		for _, t := range p.InterestTags() {
			seen[t] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}
