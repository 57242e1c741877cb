package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Elzohary/unifiedcontract/internal/core/employee"
	"github.com/Elzohary/unifiedcontract/internal/core/training"
	pgdb "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
	"github.com/jackc/pgx/v5"
)

const trainingColumns = `id, employee_id, title, description, provider, start_date, end_date, duration_hours, status, score, certificate_url, started_at, completed_at, cancellation_reason, failure_reason, cost, ` + auditColumns

// TrainingRepository は研修を PostgreSQL に保存します。
type TrainingRepository struct {
	pool pgdb.Queryer
}

// NewTrainingRepository は TrainingRepository を生成します。
func NewTrainingRepository(pool pgdb.Queryer) *TrainingRepository {
	return &TrainingRepository{pool: pool}
}

var _ training.Repository = (*TrainingRepository)(nil)

// Save は研修を登録または更新します。
func (r *TrainingRepository) Save(ctx context.Context, t *training.Training) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	args := append([]any{
		t.ID,
		t.EmployeeID,
		t.Title,
		nullableString(t.Description),
		nullableString(t.Provider),
		dateOnly(t.StartDate),
		dateOnly(t.EndDate),
		t.DurationHours,
		string(t.Status),
		nullableFloat(t.Score),
		nullableString(t.CertificateURL),
		nullableTimestamp(t.StartedAt),
		nullableTimestamp(t.CompletedAt),
		nullableString(t.CancellationReason),
		nullableString(t.FailureReason),
		t.Cost,
	}, auditArgs(t.AuditInfo)...)

	_, err := exec.Exec(ctx, `
        INSERT INTO trainings (`+trainingColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
        ON CONFLICT (id) DO UPDATE
           SET title = EXCLUDED.title,
               description = EXCLUDED.description,
               provider = EXCLUDED.provider,
               start_date = EXCLUDED.start_date,
               end_date = EXCLUDED.end_date,
               duration_hours = EXCLUDED.duration_hours,
               status = EXCLUDED.status,
               score = EXCLUDED.score,
               certificate_url = EXCLUDED.certificate_url,
               started_at = EXCLUDED.started_at,
               completed_at = EXCLUDED.completed_at,
               cancellation_reason = EXCLUDED.cancellation_reason,
               failure_reason = EXCLUDED.failure_reason,
               cost = EXCLUDED.cost,
               updated_at = EXCLUDED.updated_at,
               updated_by = EXCLUDED.updated_by,
               deleted_at = EXCLUDED.deleted_at,
               deleted_by = EXCLUDED.deleted_by
    `, args...)
	if err != nil {
		return translateTrainingPgError(err)
	}
	return nil
}

// FindByID は ID で研修を取得します。
func (r *TrainingRepository) FindByID(ctx context.Context, id string) (*training.Training, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+trainingColumns+`
          FROM trainings
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanTraining(row)
	if err != nil {
		return nil, translateTrainingPgError(err)
	}
	return found, nil
}

// ListByEmployee は社員の研修を開始日順に返します。
func (r *TrainingRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*training.Training, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+trainingColumns+`
          FROM trainings
         WHERE employee_id = $1 AND deleted_at IS NULL
         ORDER BY start_date, id
    `, employeeID)
	if err != nil {
		return nil, translateTrainingPgError(err)
	}
	defer rows.Close()

	var trainings []*training.Training
	for rows.Next() {
		t, err := scanTraining(rows)
		if err != nil {
			return nil, translateTrainingPgError(err)
		}
		trainings = append(trainings, t)
	}
	if err := rows.Err(); err != nil {
		return nil, translateTrainingPgError(err)
	}
	return trainings, nil
}

func scanTraining(row pgx.Row) (*training.Training, error) {
	var (
		t                  training.Training
		description        sql.NullString
		provider           sql.NullString
		status             string
		score              sql.NullFloat64
		certificateURL     sql.NullString
		startedAt          sql.NullTime
		completedAt        sql.NullTime
		cancellationReason sql.NullString
		failureReason      sql.NullString
		audit              auditRow
	)

	dest := append([]any{
		&t.ID, &t.EmployeeID, &t.Title, &description, &provider, &t.StartDate, &t.EndDate, &t.DurationHours,
		&status, &score, &certificateURL, &startedAt, &completedAt, &cancellationReason, &failureReason, &t.Cost,
	}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, training.ErrTrainingNotFound
		}
		return nil, err
	}

	t.Description = stringPtr(description)
	t.Provider = stringPtr(provider)
	t.StartDate = dateOnly(t.StartDate.UTC())
	t.EndDate = dateOnly(t.EndDate.UTC())
	t.Status = training.Status(status)
	t.Score = floatPtr(score)
	t.CertificateURL = stringPtr(certificateURL)
	t.StartedAt = timestampPtr(startedAt)
	t.CompletedAt = timestampPtr(completedAt)
	t.CancellationReason = stringPtr(cancellationReason)
	t.FailureReason = stringPtr(failureReason)
	t.AuditInfo = audit.info()
	return &t, nil
}

func translateTrainingPgError(err error) error {
	code, constraint, ok := pgErrorCode(err)
	if ok && code == foreignKeyViolationCode && constraint == "trainings_employee_id_fkey" {
		return employee.ErrEmployeeNotFound
	}
	return err
}
