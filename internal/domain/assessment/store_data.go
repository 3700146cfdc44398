package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"perfreview/internal/platform/querier"
)

// PGStore persists records in assessment_records. Rows are locked with
// FOR UPDATE inside a Tx and every write checks the version column.
type PGStore struct {
	DB querier.TxBeginner
}

func NewPGStore(db querier.TxBeginner) *PGStore {
	return &PGStore{DB: db}
}

const recordColumns = `
    id, employee_id, period_id, competency_score, competency_detail,
    product_score, bonus, bonus_reason, total_score, grade,
    created_at, last_modified_at, version`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var detail []byte
	if err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.PeriodID, &rec.CompetencyScore, &detail,
		&rec.ProductScore, &rec.Bonus, &rec.BonusReason, &rec.TotalScore, &rec.Grade,
		&rec.CreatedAt, &rec.LastModifiedAt, &rec.Version); err != nil {
		return Record{}, err
	}
	if len(detail) > 0 {
		var c CompetencySubmission
		if err := json.Unmarshal(detail, &c); err != nil {
			return Record{}, fmt.Errorf("decode competency detail: %w", err)
		}
		rec.CompetencyDetail = &c
	}
	return rec, nil
}

func getRecord(ctx context.Context, q querier.Querier, employeeID string, periodID int64, lock bool) (Record, bool, error) {
	query := "SELECT" + recordColumns + " FROM assessment_records WHERE employee_id = $1 AND period_id = $2"
	if lock {
		query += " FOR UPDATE"
	}
	rec, err := scanRecord(q.QueryRow(ctx, query, employeeID, periodID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *PGStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

func (s *PGStore) Get(ctx context.Context, employeeID string, periodID int64) (Record, bool, error) {
	return getRecord(ctx, s.DB, employeeID, periodID, false)
}

func (s *PGStore) ListByEmployee(ctx context.Context, employeeID string) ([]Record, error) {
	rows, err := s.DB.Query(ctx, "SELECT"+recordColumns+`
    FROM assessment_records
    WHERE employee_id = $1
    ORDER BY period_id DESC
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PGStore) ListByPeriod(ctx context.Context, periodID int64, employeeIDs []string) ([]Record, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, "SELECT"+recordColumns+`
    FROM assessment_records
    WHERE period_id = $1 AND employee_id = ANY($2)
    ORDER BY employee_id
  `, periodID, employeeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PGStore) Ping(ctx context.Context) error {
	var one int
	return s.DB.QueryRow(ctx, "SELECT 1").Scan(&one)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Get(ctx context.Context, employeeID string, periodID int64) (Record, bool, error) {
	return getRecord(ctx, t.tx, employeeID, periodID, true)
}

func (t *pgTx) Save(ctx context.Context, rec Record, expectedVersion int64) (Record, error) {
	var detail []byte
	if rec.CompetencyDetail != nil {
		encoded, err := json.Marshal(rec.CompetencyDetail)
		if err != nil {
			return Record{}, fmt.Errorf("encode competency detail: %w", err)
		}
		detail = encoded
	}

	if expectedVersion == 0 {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.Version = 1
		tag, err := t.tx.Exec(ctx, `
      INSERT INTO assessment_records (
        id, employee_id, period_id, competency_score, competency_detail,
        product_score, bonus, bonus_reason, total_score, grade,
        created_at, last_modified_at, version
      )
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
      ON CONFLICT (employee_id, period_id) DO NOTHING
    `, rec.ID, rec.EmployeeID, rec.PeriodID, rec.CompetencyScore, detail,
			rec.ProductScore, rec.Bonus, rec.BonusReason, rec.TotalScore, rec.Grade,
			rec.CreatedAt, rec.LastModifiedAt, rec.Version)
		if err != nil {
			return Record{}, err
		}
		if tag.RowsAffected() == 0 {
			return Record{}, fmt.Errorf("%w: record for %s/%d created concurrently", ErrConflict, rec.EmployeeID, rec.PeriodID)
		}
		return rec, nil
	}

	rec.Version = expectedVersion + 1
	tag, err := t.tx.Exec(ctx, `
    UPDATE assessment_records
    SET competency_score = $1,
        competency_detail = $2,
        product_score = $3,
        bonus = $4,
        bonus_reason = $5,
        total_score = $6,
        grade = $7,
        last_modified_at = $8,
        version = $9
    WHERE employee_id = $10 AND period_id = $11 AND version = $12
  `, rec.CompetencyScore, detail, rec.ProductScore, rec.Bonus, rec.BonusReason,
		rec.TotalScore, rec.Grade, rec.LastModifiedAt, rec.Version,
		rec.EmployeeID, rec.PeriodID, expectedVersion)
	if err != nil {
		return Record{}, err
	}
	if tag.RowsAffected() == 0 {
		return Record{}, fmt.Errorf("%w: record %s/%d changed since read", ErrConflict, rec.EmployeeID, rec.PeriodID)
	}
	return rec, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
