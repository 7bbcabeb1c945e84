package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/simplemailer/simplemailer/internal/database"
	"github.com/simplemailer/simplemailer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRecipientRepo(t *testing.T) (*RecipientRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRecipientRepository(database.WrapPostgres(db)), mock
}

var recipientCols = []string{"id", "uuid", "name", "email", "created_at", "updated_at"}

func TestRecipientRepository_Upsert(t *testing.T) {
	repo, mock := setupRecipientRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO recipients .* ON CONFLICT \(email\) DO UPDATE`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Ann", "a@x.io", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(append(recipientCols, "inserted")).
			AddRow("507f1f77bcf86cd799439011", "9b2e7c2a-4a1e-4f4e-9d8e-2f1b7c9a0e11", "Ann", "a@x.io", now, now, true))

	rec, created, err := repo.Upsert(context.Background(), "Ann", "a@x.io")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "507f1f77bcf86cd799439011", rec.ID)
	assert.Equal(t, "a@x.io", rec.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepository_Upsert_Existing(t *testing.T) {
	repo, mock := setupRecipientRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO recipients`).
		WillReturnRows(sqlmock.NewRows(append(recipientCols, "inserted")).
			AddRow("507f1f77bcf86cd799439011", "9b2e7c2a-4a1e-4f4e-9d8e-2f1b7c9a0e11", "Ann B", "a@x.io", now, now, false))

	_, created, err := repo.Upsert(context.Background(), "Ann B", "a@x.io")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRecipientRepository_Upsert_UniqueViolation(t *testing.T) {
	repo, mock := setupRecipientRepo(t)

	mock.ExpectQuery(`INSERT INTO recipients`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, _, err := repo.Upsert(context.Background(), "", "a@x.io")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestRecipientRepository_List(t *testing.T) {
	repo, mock := setupRecipientRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM recipients .* ORDER BY created_at DESC`).
		WithArgs("", `50\%`).
		WillReturnRows(sqlmock.NewRows(recipientCols).
			AddRow("b", "u2", "50% off", "b@x.io", now, now).
			AddRow("a", "u1", "50% on", "a@x.io", now.Add(-time.Minute), now))

	recs, err := repo.List(context.Background(), model.ListFilter{Name: "50%"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepository_List_Empty(t *testing.T) {
	repo, mock := setupRecipientRepo(t)

	mock.ExpectQuery(`FROM recipients`).
		WithArgs("", "").
		WillReturnRows(sqlmock.NewRows(recipientCols))

	recs, err := repo.List(context.Background(), model.ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestRecipientRepository_FindByEmails(t *testing.T) {
	repo, mock := setupRecipientRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE email = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(recipientCols).AddRow("a", "u1", "", "a@x.io", now, now))

	recs, err := repo.FindByEmails(context.Background(), []string{"a@x.io", "z@x.io"})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRecipientRepository_Get_NotFound(t *testing.T) {
	repo, mock := setupRecipientRepo(t)

	mock.ExpectQuery(`FROM recipients WHERE uuid = \$1`).
		WithArgs("9b2e7c2a-4a1e-4f4e-9d8e-2f1b7c9a0e11").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), FieldUUID, "9b2e7c2a-4a1e-4f4e-9d8e-2f1b7c9a0e11")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecipientRepository_Get_UnknownField(t *testing.T) {
	repo, _ := setupRecipientRepo(t)

	_, err := repo.Get(context.Background(), Field("name; DROP TABLE recipients"), "x")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecipientRepository_Update(t *testing.T) {
	repo, mock := setupRecipientRepo(t)
	now := time.Now().UTC()
	name := "Zed"

	mock.ExpectQuery(`UPDATE recipients\s+SET name = COALESCE\(\$1, name\)`).
		WithArgs(sql.NullString{String: "Zed", Valid: true}, sql.NullString{}, sqlmock.AnyArg(), "a@x.io").
		WillReturnRows(sqlmock.NewRows(recipientCols).AddRow("a", "u1", "Zed", "a@x.io", now, now))

	rec, err := repo.Update(context.Background(), FieldEmail, "a@x.io", model.RecipientPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Zed", rec.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepository_Update_Errors(t *testing.T) {
	email := "taken@x.io"
	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{"no match", sql.ErrNoRows, ErrNotFound},
		{"email collision", &pq.Error{Code: "23505"}, ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupRecipientRepo(t)
			mock.ExpectQuery(`UPDATE recipients`).WillReturnError(tt.dbErr)

			_, err := repo.Update(context.Background(), FieldID, "507f1f77bcf86cd799439011", model.RecipientPatch{Email: &email})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRecipientRepository_Delete(t *testing.T) {
	repo, mock := setupRecipientRepo(t)

	mock.ExpectExec(`DELETE FROM recipients WHERE email = \$1`).
		WithArgs("a@x.io").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM recipients WHERE email = \$1`).
		WithArgs("a@x.io").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.Delete(context.Background(), FieldEmail, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Delete(context.Background(), FieldEmail, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRecipientRepository_Delete_Error(t *testing.T) {
	repo, mock := setupRecipientRepo(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(`DELETE FROM recipients`).WillReturnError(boom)

	_, err := repo.Delete(context.Background(), FieldID, "507f1f77bcf86cd799439011")
	assert.ErrorIs(t, err, boom)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestAuditRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewAuditRepository(database.WrapPostgres(db))

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("id-1", model.AuditActionRecipientUnsubscribed, model.AuditResourceRecipient, "u1", []byte(`{"source":"link"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), &model.AuditLog{
		ID:           "id-1",
		Action:       model.AuditActionRecipientUnsubscribed,
		ResourceType: model.AuditResourceRecipient,
		ResourceID:   "u1",
		Metadata:     map[string]interface{}{"source": "link"},
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_CreateNilMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewAuditRepository(database.WrapPostgres(db))

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("id-2", model.AuditActionRecipientUnsubscribed, model.AuditResourceRecipient, "u2", []byte(`{}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), &model.AuditLog{
		ID:           "id-2",
		Action:       model.AuditActionRecipientUnsubscribed,
		ResourceType: model.AuditResourceRecipient,
		ResourceID:   "u2",
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
