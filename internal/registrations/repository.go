package registrations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/pkg/apperr"
	"github.com/benasque-conf/participants/pkg/database"
)

var validate = validator.New()

func validEmail(s string) bool {
	return validate.Var(s, "email") == nil
}

// Repository handles registration persistence. Rows are owned by the import process.
type Repository struct {
	db *database.DB
}

// NewRepository creates a registrations repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const upsertRegistration = `INSERT INTO registrations (email, first_name, last_name, status, affiliation, start_date, end_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (email) DO UPDATE SET
		first_name = excluded.first_name,
		last_name = excluded.last_name,
		status = excluded.status,
		affiliation = excluded.affiliation,
		start_date = excluded.start_date,
		end_date = excluded.end_date,
		updated_at = CURRENT_TIMESTAMP`

// CheckRecord validates one import entry. Fields are trimmed in place.
func CheckRecord(rec *models.RegistrationRecord) error {
	rec.Email = strings.TrimSpace(rec.Email)
	rec.FirstName = strings.TrimSpace(rec.FirstName)
	rec.LastName = strings.TrimSpace(rec.LastName)
	rec.Status = strings.TrimSpace(rec.Status)
	if rec.Email == "" || rec.FirstName == "" || rec.LastName == "" || rec.Status == "" {
		raw, _ := json.Marshal(rec)
		return apperr.Validation("Missing required fields for registration: %s", raw)
	}
	if !validEmail(rec.Email) {
		return apperr.Validation("Invalid email format: %s", rec.Email)
	}
	if !models.ValidRegistrationStatus(rec.Status) {
		return apperr.Validation("Invalid status '%s' for %s", rec.Status, rec.Email)
	}
	return nil
}

// ImportBatch upserts every valid record in one transaction. Each record runs under its own
// savepoint, so a failing record is rolled back alone and reported in Errors.
func (r *Repository) ImportBatch(ctx context.Context, records []models.RegistrationRecord) (*models.ImportResult, error) {
	res := &models.ImportResult{Errors: []string{}, TotalProcessed: len(records)}
	err := database.WithTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		for i := range records {
			rec := records[i]
			if err := CheckRecord(&rec); err != nil {
				res.Errors = append(res.Errors, err.Error())
				continue
			}
			if err := upsertOne(ctx, tx, &rec); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("Error processing %s: %v", rec.Email, err))
				continue
			}
			res.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import registrations: %w", err)
	}
	return res, nil
}

func upsertOne(ctx context.Context, tx *sql.Tx, rec *models.RegistrationRecord) error {
	if _, err := tx.ExecContext(ctx, `SAVEPOINT registration_row`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, upsertRegistration,
		rec.Email, rec.FirstName, rec.LastName, rec.Status, rec.Affiliation, rec.StartDate, rec.EndDate)
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT registration_row`); rbErr != nil {
			return fmt.Errorf("%v (rollback: %w)", err, rbErr)
		}
		return err
	}
	_, err = tx.ExecContext(ctx, `RELEASE SAVEPOINT registration_row`)
	return err
}

// List returns all registrations ordered by status, last name, first name.
func (r *Repository) List(ctx context.Context) ([]models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, first_name, last_name, status, affiliation,
		start_date, end_date, created_at, updated_at
		FROM registrations ORDER BY status, last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(&reg.ID, &reg.Email, &reg.FirstName, &reg.LastName, &reg.Status, &reg.Affiliation,
			&reg.StartDate, &reg.EndDate, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// GetByEmail returns the registration for email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Registration, error) {
	var reg models.Registration
	err := r.db.QueryRowContext(ctx, `SELECT id, email, first_name, last_name, status, affiliation,
		start_date, end_date, created_at, updated_at FROM registrations WHERE email = $1`, email).
		Scan(&reg.ID, &reg.Email, &reg.FirstName, &reg.LastName, &reg.Status, &reg.Affiliation,
			&reg.StartDate, &reg.EndDate, &reg.CreatedAt, &reg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Registration not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}
