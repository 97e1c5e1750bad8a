package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/simaogato/payswarm-backend/internal/domain"
)

// payeeScheduleRepository implements domain.PayeeScheduleRepository
type payeeScheduleRepository struct {
	db *DB
}

// NewPayeeScheduleRepository creates a new payee schedule repository
func NewPayeeScheduleRepository(db *DB) domain.PayeeScheduleRepository {
	return &payeeScheduleRepository{db: db}
}

// GetByName retrieves a schedule and its payees, ordered as they were saved
func (r *payeeScheduleRepository) GetByName(ctx context.Context, name string) (*domain.PayeeSchedule, error) {
	scheduleQuery := `
		SELECT id, name, currency, rules
		FROM payee_schedules
		WHERE name = $1
	`

	var schedule domain.PayeeSchedule
	var rules []byte
	err := r.db.QueryRowContext(ctx, scheduleQuery, name).Scan(
		&schedule.ID,
		&schedule.Name,
		&schedule.Currency,
		&rules,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, name)
		}
		return nil, fmt.Errorf("failed to get payee schedule: %w", err)
	}

	if err := json.Unmarshal(rules, &schedule.Rules); err != nil {
		return nil, fmt.Errorf("failed to decode payee rules: %w", err)
	}

	payeesQuery := `
		SELECT destination, currency, rate_type, apply_type, rate,
		       payee_group, apply_group, exempt_group, apply_after,
		       minimum_amount, maximum_amount, comment
		FROM schedule_payees
		WHERE schedule_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, payeesQuery, schedule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule payees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Payee
		var rateStr string
		var minimum, maximum sql.NullString
		var group, applyGroup, exemptGroup, applyAfter pq.StringArray

		err := rows.Scan(
			&p.Destination,
			&p.Currency,
			&p.RateType,
			&p.ApplyType,
			&rateStr,
			&group,
			&applyGroup,
			&exemptGroup,
			&applyAfter,
			&minimum,
			&maximum,
			&p.Comment,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule payee: %w", err)
		}

		if p.Rate, err = decimal.NewFromString(rateStr); err != nil {
			return nil, fmt.Errorf("failed to parse payee rate: %w", err)
		}
		if p.MinimumAmount, err = nullDecimal(minimum); err != nil {
			return nil, fmt.Errorf("failed to parse payee minimum amount: %w", err)
		}
		if p.MaximumAmount, err = nullDecimal(maximum); err != nil {
			return nil, fmt.Errorf("failed to parse payee maximum amount: %w", err)
		}

		p.Group = []string(group)
		p.ApplyGroup = nonEmpty(applyGroup)
		p.ExemptGroup = nonEmpty(exemptGroup)
		p.ApplyAfter = nonEmpty(applyAfter)

		schedule.Payees = append(schedule.Payees, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule payees: %w", err)
	}

	return &schedule, nil
}

// Save upserts the schedule by name and replaces its payees.
// When a schedule with the same name exists its ID is kept and written back to schedule.ID.
func (r *payeeScheduleRepository) Save(ctx context.Context, schedule *domain.PayeeSchedule) error {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}

	rules := schedule.Rules
	if rules == nil {
		rules = []domain.PayeeRule{}
	}
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to encode payee rules: %w", err)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	upsertQuery := `
		INSERT INTO payee_schedules (id, name, currency, rules)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET currency = EXCLUDED.currency, rules = EXCLUDED.rules
		RETURNING id
	`

	var id uuid.UUID
	if err := dbTx.QueryRowContext(ctx, upsertQuery, schedule.ID, schedule.Name, schedule.Currency, rulesJSON).Scan(&id); err != nil {
		return fmt.Errorf("failed to upsert payee schedule: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM schedule_payees WHERE schedule_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear schedule payees: %w", err)
	}

	insertPayeeQuery := `
		INSERT INTO schedule_payees (
			schedule_id, position, destination, currency, rate_type, apply_type, rate,
			payee_group, apply_group, exempt_group, apply_after,
			minimum_amount, maximum_amount, comment
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for i, p := range schedule.Payees {
		_, err := dbTx.ExecContext(ctx, insertPayeeQuery,
			id,
			i,
			p.Destination,
			p.Currency,
			string(p.RateType),
			string(p.ApplyType),
			p.Rate.String(),
			pq.Array(p.Group),
			pq.Array(emptyIfNil(p.ApplyGroup)),
			pq.Array(emptyIfNil(p.ExemptGroup)),
			pq.Array(emptyIfNil(p.ApplyAfter)),
			decimalOrNull(p.MinimumAmount),
			decimalOrNull(p.MaximumAmount),
			p.Comment,
		)
		if err != nil {
			return fmt.Errorf("failed to insert schedule payee %d: %w", i, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	schedule.ID = id

	return nil
}

func nullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}

	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}

	return &d, nil
}

func decimalOrNull(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: d.String(), Valid: true}
}

// nonEmpty maps the empty arrays stored for absent groups back to nil
func nonEmpty(a pq.StringArray) []string {
	if len(a) == 0 {
		return nil
	}

	return []string(a)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
