// internal/deals/postgres_source.go
package deals

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/models"
)

const listDealsQuery = `
	SELECT id, name, company_name, contact_name, priority, stage, next_step,
	       amount, currency, days_in_stage, days_inactive, crm_url,
	       last_activity_date, notes
	FROM deals
	WHERE ($1 = '' OR owner_email = $1)
	ORDER BY days_inactive DESC, id
	LIMIT $2`

// Querier is satisfied by *sql.DB.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// PostgresSource reads a read-only snapshot of a CRM export table.
type PostgresSource struct {
	db         Querier
	ownerEmail string
	limit      int
	timeout    time.Duration
	logger     logger.Logger
}

// NewPostgresSource builds a source. An empty ownerEmail reads every row; a
// non-positive limit defaults to 500.
func NewPostgresSource(db Querier, ownerEmail string, limit int, timeout time.Duration, log logger.Logger) *PostgresSource {
	if limit <= 0 {
		limit = 500
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &PostgresSource{db: db, ownerEmail: ownerEmail, limit: limit, timeout: timeout, logger: log}
}

func (p *PostgresSource) Name() string { return "postgres" }

func (p *PostgresSource) LoadDeals(ctx context.Context) ([]models.Deal, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	rows, err := p.db.QueryContext(ctx, listDealsQuery, p.ownerEmail, p.limit)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_deals", err)
	}
	defer rows.Close()

	var out []models.Deal
	for rows.Next() {
		var (
			d                   models.Deal
			priority, currency  string
			stage, nextStep     sql.NullString
			notes, lastActivity sql.NullString
		)
		if err := rows.Scan(
			&d.ID, &d.Name, &d.CompanyName, &d.ContactName, &priority, &stage, &nextStep,
			&d.Amount, &currency, &d.DaysInStage, &d.DaysInactive, &d.CRMURL,
			&lastActivity, &notes,
		); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_deals", fmt.Errorf("scan: %w", err))
		}
		d.Priority = models.Priority(priority)
		d.Currency = models.Currency(currency)
		if nextStep.Valid {
			s := nextStep.String
			d.NextStep = &s
		}
		d.Stage = stage.String
		d.Notes = notes.String
		d.LastActivityDate = lastActivity.String
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_deals", err)
	}

	p.logger.Debug("Deals query executed", map[string]interface{}{
		"rows":            len(out),
		"executionTimeMs": time.Since(start).Milliseconds(),
	})
	return out, nil
}
