package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"perfreview/internal/domain/auth"
	"perfreview/internal/domain/directory"
	"perfreview/internal/platform/querier"
)

// SeedFile is the YAML organisation snapshot.
type SeedFile struct {
	Departments  []directory.Department  `yaml:"departments"`
	ProductLines []directory.ProductLine `yaml:"productLines"`
	Employees    []SeedEmployee          `yaml:"employees"`
	Periods      []SeedPeriod            `yaml:"periods"`
}

type SeedEmployee struct {
	directory.Employee `yaml:",inline"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
}

type SeedPeriod struct {
	directory.Period `yaml:",inline"`
	Criteria         any `yaml:"criteria"`
	PunishmentRule   any `yaml:"punishmentRule"`
}

func LoadSeed(path string) (SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed file: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return SeedFile{}, err
	}
	return seed, nil
}

// Validate checks ids are unique and leader/judge pointers resolve.
// Cycles in the leader chain are allowed.
func (s SeedFile) Validate() error {
	var problems []error
	ids := make(map[string]struct{}, len(s.Employees))
	usernames := map[string]struct{}{}
	for _, emp := range s.Employees {
		if strings.TrimSpace(emp.ID) == "" {
			problems = append(problems, errors.New("employee with empty id"))
			continue
		}
		if _, dup := ids[emp.ID]; dup {
			problems = append(problems, fmt.Errorf("duplicate employee id %s", emp.ID))
		}
		ids[emp.ID] = struct{}{}
		if emp.Username == "" {
			continue
		}
		if _, dup := usernames[emp.Username]; dup {
			problems = append(problems, fmt.Errorf("duplicate username %s", emp.Username))
		}
		usernames[emp.Username] = struct{}{}
		if err := auth.ValidatePassword(emp.Password); err != nil {
			problems = append(problems, fmt.Errorf("employee %s: %w", emp.ID, err))
		}
	}
	for _, emp := range s.Employees {
		for field, ref := range map[string]string{
			"immediateLeader": emp.ImmediateLeader,
			"directJudgeId":   emp.DirectJudgeID,
			"topLeader":       emp.TopLeader,
		} {
			if ref == "" {
				continue
			}
			if _, ok := ids[ref]; !ok {
				problems = append(problems, fmt.Errorf("employee %s: %s %s does not exist", emp.ID, field, ref))
			}
		}
	}
	for _, period := range s.Periods {
		if period.ID <= 0 {
			problems = append(problems, fmt.Errorf("period %q needs a positive id", period.Name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid seed: %w", errors.Join(problems...))
	}
	return nil
}

// Organisation converts the seed into the directory snapshot.
func (s SeedFile) Organisation() (directory.Organisation, error) {
	org := directory.Organisation{
		Departments:  s.Departments,
		ProductLines: s.ProductLines,
	}
	for _, emp := range s.Employees {
		org.Employees = append(org.Employees, emp.Employee)
	}
	for _, sp := range s.Periods {
		period := sp.Period
		var err error
		if period.Criteria, err = encodeJSON(sp.Criteria); err != nil {
			return directory.Organisation{}, fmt.Errorf("period %d criteria: %w", period.ID, err)
		}
		if period.PunishmentRule, err = encodeJSON(sp.PunishmentRule); err != nil {
			return directory.Organisation{}, fmt.Errorf("period %d punishment rule: %w", period.ID, err)
		}
		org.Periods = append(org.Periods, period)
	}
	return org, nil
}

// Credentials hashes every seeded password.
func (s SeedFile) Credentials() ([]auth.Credential, error) {
	var creds []auth.Credential
	for _, emp := range s.Employees {
		if emp.Username == "" {
			continue
		}
		hash, err := auth.HashPassword(emp.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", emp.ID, err)
		}
		creds = append(creds, auth.Credential{Username: emp.Username, EmployeeID: emp.ID, PasswordHash: hash})
	}
	return creds, nil
}

func encodeJSON(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}

// SeedCredentials stores the seed's credentials through any auth store.
func SeedCredentials(ctx context.Context, store auth.StoreAPI, seed SeedFile) error {
	creds, err := seed.Credentials()
	if err != nil {
		return err
	}
	for _, cred := range creds {
		if err := store.UpsertCredential(ctx, cred); err != nil {
			return fmt.Errorf("seed credential %s: %w", cred.Username, err)
		}
	}
	return nil
}

// Seed upserts the organisation and credentials into Postgres in one
// transaction. Existing assessment records are not touched.
func Seed(ctx context.Context, db querier.TxBeginner, seed SeedFile) error {
	org, err := seed.Organisation()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := seedTx(ctx, tx, org); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.Warn("seed rollback failed", "err", rbErr)
		}
		return err
	}
	if err := SeedCredentials(ctx, auth.NewStore(tx), seed); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.Warn("seed rollback failed", "err", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	slog.Info("seed applied",
		"departments", len(org.Departments),
		"productLines", len(org.ProductLines),
		"employees", len(org.Employees),
		"periods", len(org.Periods),
	)
	return nil
}

func seedTx(ctx context.Context, tx pgx.Tx, org directory.Organisation) error {
	for _, dep := range org.Departments {
		if _, err := tx.Exec(ctx, `
      INSERT INTO departments (id, name, avg_attendance) VALUES ($1,$2,$3)
      ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, avg_attendance = EXCLUDED.avg_attendance
    `, dep.ID, dep.Name, dep.AvgAttendance); err != nil {
			return fmt.Errorf("seed department %d: %w", dep.ID, err)
		}
	}
	for _, product := range org.ProductLines {
		if _, err := tx.Exec(ctx, `
      INSERT INTO product_lines (id, name) VALUES ($1,$2)
      ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
    `, product.ID, product.Name); err != nil {
			return fmt.Errorf("seed product line %d: %w", product.ID, err)
		}
	}
	// Rows first, pointers second, so references may point either way.
	for _, emp := range org.Employees {
		if _, err := tx.Exec(ctx, `
      INSERT INTO employees (id, name, position, is_sa, is_rj, is_pj, department_id, product_id, is_manager)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
      ON CONFLICT (id) DO UPDATE
      SET name = EXCLUDED.name, position = EXCLUDED.position,
          is_sa = EXCLUDED.is_sa, is_rj = EXCLUDED.is_rj, is_pj = EXCLUDED.is_pj,
          department_id = EXCLUDED.department_id, product_id = EXCLUDED.product_id,
          is_manager = EXCLUDED.is_manager
    `, emp.ID, emp.Name, emp.Position, emp.IsSA, emp.IsRJ, emp.IsPJ, emp.DepartmentID, emp.ProductID, emp.IsManager); err != nil {
			return fmt.Errorf("seed employee %s: %w", emp.ID, err)
		}
	}
	for _, emp := range org.Employees {
		if _, err := tx.Exec(ctx, `
      UPDATE employees
      SET immediate_leader = NULLIF($2, ''), direct_judge_id = NULLIF($3, ''), top_leader = NULLIF($4, '')
      WHERE id = $1
    `, emp.ID, emp.ImmediateLeader, emp.DirectJudgeID, emp.TopLeader); err != nil {
			return fmt.Errorf("seed employee %s relations: %w", emp.ID, err)
		}
	}
	for _, period := range org.Periods {
		if _, err := tx.Exec(ctx, `
      INSERT INTO assessment_periods (id, name, score_rule, criteria_json, deadline, forced_distribution, punishment_json, department_id)
      VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8, 0))
      ON CONFLICT (id) DO UPDATE
      SET name = EXCLUDED.name, score_rule = EXCLUDED.score_rule, criteria_json = EXCLUDED.criteria_json,
          deadline = EXCLUDED.deadline, forced_distribution = EXCLUDED.forced_distribution,
          punishment_json = EXCLUDED.punishment_json, department_id = EXCLUDED.department_id
    `, period.ID, period.Name, period.ScoreRule, rawOrNil(period.Criteria), period.Deadline,
			period.ForcedDistribution, rawOrNil(period.PunishmentRule), period.DepartmentID); err != nil {
			return fmt.Errorf("seed period %d: %w", period.ID, err)
		}
	}
	if len(org.Periods) > 0 {
		if _, err := tx.Exec(ctx, `
      SELECT setval(pg_get_serial_sequence('assessment_periods', 'id'), (SELECT MAX(id) FROM assessment_periods))
    `); err != nil {
			return fmt.Errorf("advance period sequence: %w", err)
		}
	}
	return nil
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
