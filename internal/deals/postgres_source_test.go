// internal/deals/postgres_source_test.go
package deals

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/models"
)

var dealColumns = []string{
	"id", "name", "company_name", "contact_name", "priority", "stage", "next_step",
	"amount", "currency", "days_in_stage", "days_inactive", "crm_url",
	"last_activity_date", "notes",
}

func TestPostgresSource_LoadDeals(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(dealColumns).
		AddRow("d-1", "Acme", "Acme Inc", "Sarah Connor", "high", "Negotiation", "Send MSA",
			80000.0, "USD", 21, 30, "https://crm.example.com/d-1", "2026-09-01", "budget concerns").
		AddRow("d-2", "Globex", "Globex", "Hank", "low", nil, nil,
			1000.0, "EUR", 3, 0, "", nil, nil)

	mock.ExpectQuery("FROM deals").
		WithArgs("owner@drift.app", 50).
		WillReturnRows(rows)

	src := NewPostgresSource(db, "owner@drift.app", 50, time.Second, logger.NewTestLogger(t))
	deals, err := src.LoadDeals(context.Background())
	require.NoError(t, err)
	require.Len(t, deals, 2)

	assert.Equal(t, models.PriorityHigh, deals[0].Priority)
	assert.Equal(t, "Send MSA", deals[0].NextStepText())
	assert.Equal(t, 30, deals[0].DaysInactive)
	assert.Equal(t, "budget concerns", deals[0].Notes)

	assert.Empty(t, deals[1].Stage)
	assert.Nil(t, deals[1].NextStep)
	assert.Equal(t, models.CurrencyEUR, deals[1].Currency)
	assert.Empty(t, deals[1].Notes)
	assert.Empty(t, deals[1].LastActivityDate)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_Defaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM deals").
		WithArgs("", 500).
		WillReturnRows(sqlmock.NewRows(dealColumns))

	deals, err := NewPostgresSource(db, "", 0, 0, nil).LoadDeals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, deals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{
			name: "query fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM deals").WillReturnError(sql.ErrConnDone)
			},
		},
		{
			name: "scan fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM deals").WillReturnRows(
					sqlmock.NewRows(dealColumns).AddRow("d-1", "A", "", "", "high", "Discovery", nil,
						"not-a-number", "USD", 0, 0, "", nil, nil))
			},
		},
		{
			name: "row iteration fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM deals").WillReturnRows(
					sqlmock.NewRows(dealColumns).
						AddRow("d-1", "A", "", "", "high", "Discovery", nil, 1.0, "USD", 0, 0, "", nil, nil).
						RowError(0, stderrors.New("stream broken")))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			_, err = NewPostgresSource(db, "", 10, time.Second, nil).LoadDeals(context.Background())
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, apperrors.CodeOf(err))
		})
	}
}

func TestService_LoadFromPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM deals").WillReturnRows(
		sqlmock.NewRows(dealColumns).AddRow("d-9", "Umbrella", "Umbrella", "Alice", "medium", "Contract Sent", nil,
			120000.0, "USD", 12, 20, "", nil, "waiting on legal"))

	svc := newTestService(t)
	require.NoError(t, svc.LoadFrom(context.Background(), NewPostgresSource(db, "", 0, 0, nil)))

	d, err := svc.Deal("d-9")
	require.NoError(t, err)
	assert.Equal(t, 94, d.RiskScore) // 20/28*0.2 + 0.3 + 0.4 + 0.1
}
