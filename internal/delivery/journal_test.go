// internal/delivery/journal_test.go
package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-funnel/internal/models"
)

func TestJournal_Migrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS lead_delivery_journal").
		WillReturnResult(sqlmock.NewResult(0, 0))

	journal := NewJournal(db)
	require.NoError(t, journal.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO lead_delivery_journal").
		WithArgs("jane@example.com", "creator", sqlmock.AnyArg(), "sent", 200, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	journal := NewJournal(db)
	lead := models.LeadRecord{Email: "jane@example.com", UserType: models.UserTypeCreator}
	require.NoError(t, journal.Record(context.Background(), lead, "sent", 200))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_RecordInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO lead_delivery_journal").
		WillReturnError(assert.AnError)

	journal := NewJournal(db)
	lead := models.LeadRecord{Email: "jane@example.com", UserType: models.UserTypeBrand}
	assert.Error(t, journal.Record(context.Background(), lead, "error", 0))
}

func TestJournal_FailedSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"email"}).
		AddRow("first@example.com").
		AddRow("second@example.com")
	mock.ExpectQuery("SELECT email FROM lead_delivery_journal").
		WithArgs(cutoff).
		WillReturnRows(rows)

	journal := NewJournal(db)
	emails, err := journal.FailedSince(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"first@example.com", "second@example.com"}, emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}
