package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

func TestTreatmentSkipRepositoryCreateAndLock(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTreatmentSkipRepository(db)

	mock.ExpectExec("INSERT INTO treatment_skips").WillReturnResult(sqlmock.NewResult(1, 1))
	skip := &models.TreatmentSkip{SessionID: "s1", PatientID: "p-1", Reason: "fever", Snapshot: []byte(`{"from_date":"2026-01-06","discharge_date":null,"sessions":[]}`)}
	require.NoError(t, repo.Create(context.Background(), nil, skip))
	assert.NotEmpty(t, skip.ID)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "session_id", "patient_id", "reason", "snapshot", "created_by", "created_at", "undone_by", "undone_at"}).
		AddRow(skip.ID, "s1", "p-1", "fever", []byte(skip.Snapshot), nil, now, "u-1", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM treatment_skips WHERE id = $1 FOR UPDATE")).WithArgs(skip.ID).WillReturnRows(rows)

	locked, err := repo.FindByIDForUpdate(context.Background(), nil, skip.ID)
	require.NoError(t, err)
	assert.True(t, locked.Undone())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTreatmentSkipRepositoryMarkUndoneOnce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTreatmentSkipRepository(db)

	userID := "u-1"
	at := time.Date(2026, time.January, 7, 1, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE treatment_skips SET undone_by = $2, undone_at = $3 WHERE id = $1 AND undone_at IS NULL")).
		WithArgs("k-1", userID, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkUndone(context.Background(), nil, "k-1", &userID, at)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
