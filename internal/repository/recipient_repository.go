package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/simplemailer/simplemailer/internal/database"
	"github.com/simplemailer/simplemailer/internal/identifier"
	"github.com/simplemailer/simplemailer/internal/model"
)

// Field names a unique recipient column usable as a lookup key
type Field string

const (
	FieldID    Field = "id"
	FieldEmail Field = "email"
	FieldUUID  Field = "uuid"
)

func (f Field) column() (string, error) {
	switch f {
	case FieldID, FieldEmail, FieldUUID:
		return string(f), nil
	}
	return "", fmt.Errorf("%w: unknown lookup field %q", ErrInvalidInput, f)
}

const recipientColumns = `id, uuid, name, email, created_at, updated_at`

// RecipientRepository handles recipient persistence in PostgreSQL
type RecipientRepository struct {
	db *database.Postgres
}

// NewRecipientRepository creates a new RecipientRepository
func NewRecipientRepository(db *database.Postgres) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// Upsert inserts a recipient keyed by email, or overwrites the name of the
// existing one. created reports whether a new row was inserted.
func (r *RecipientRepository) Upsert(ctx context.Context, name, email string) (*model.Recipient, bool, error) {
	query := `
		INSERT INTO recipients (id, uuid, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		RETURNING ` + recipientColumns + `, (xmax = 0) AS inserted
	`
	var (
		rec      model.Recipient
		inserted bool
	)
	err := r.db.QueryRowContext(ctx, query,
		identifier.NewDirectoryID(),
		uuid.NewString(),
		name,
		email,
		time.Now().UTC(),
	).Scan(&rec.ID, &rec.UUID, &rec.Name, &rec.Email, &rec.CreatedAt, &rec.UpdatedAt, &inserted)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, ErrDuplicate
		}
		return nil, false, fmt.Errorf("failed to upsert recipient: %w", err)
	}
	return &rec, inserted, nil
}

// List returns recipients matching the filter, newest first
func (r *RecipientRepository) List(ctx context.Context, filter model.ListFilter) ([]*model.Recipient, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM recipients
		WHERE ($1 = '' OR email = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' ESCAPE '\')
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, filter.Email, escapeLike(filter.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	return scanRecipients(rows)
}

// FindByEmails returns the recipients whose email is in the given set
func (r *RecipientRepository) FindByEmails(ctx context.Context, emails []string) ([]*model.Recipient, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM recipients
		WHERE email = ANY($1)
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(emails))
	if err != nil {
		return nil, fmt.Errorf("failed to find recipients by email: %w", err)
	}
	defer rows.Close()

	return scanRecipients(rows)
}

// Get retrieves a single recipient by a unique field
func (r *RecipientRepository) Get(ctx context.Context, field Field, value string) (*model.Recipient, error) {
	col, err := field.column()
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE ` + col + ` = $1`
	return scanRecipient(r.db.QueryRowContext(ctx, query, value))
}

// Update applies the non-nil fields of patch to the recipient matched by field
func (r *RecipientRepository) Update(ctx context.Context, field Field, value string, patch model.RecipientPatch) (*model.Recipient, error) {
	col, err := field.column()
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE recipients
		SET name = COALESCE($1, name),
		    email = COALESCE($2, email),
		    updated_at = $3
		WHERE ` + col + ` = $4
		RETURNING ` + recipientColumns
	rec, err := scanRecipient(r.db.QueryRowContext(ctx, query,
		nullString(patch.Name),
		nullString(patch.Email),
		time.Now().UTC(),
		value,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// Delete removes the recipient matched by field and returns the number of rows removed
func (r *RecipientRepository) Delete(ctx context.Context, field Field, value string) (int64, error) {
	col, err := field.column()
	if err != nil {
		return 0, err
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM recipients WHERE `+col+` = $1`, value)
	if err != nil {
		return 0, fmt.Errorf("failed to delete recipient: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted count: %w", err)
	}
	return n, nil
}

// Count returns the number of recipients
func (r *RecipientRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count recipients: %w", err)
	}
	return n, nil
}

func scanRecipient(row *sql.Row) (*model.Recipient, error) {
	var rec model.Recipient
	err := row.Scan(&rec.ID, &rec.UUID, &rec.Name, &rec.Email, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to scan recipient: %w", err)
	}
	return &rec, nil
}

func scanRecipients(rows *sql.Rows) ([]*model.Recipient, error) {
	recipients := make([]*model.Recipient, 0)
	for rows.Next() {
		var rec model.Recipient
		if err := rows.Scan(&rec.ID, &rec.UUID, &rec.Name, &rec.Email, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipients: %w", err)
	}
	return recipients, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
