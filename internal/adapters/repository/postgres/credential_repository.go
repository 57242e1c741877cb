package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Elzohary/unifiedcontract/internal/core/credential"
	"github.com/Elzohary/unifiedcontract/internal/core/employee"
	pgdb "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
	"github.com/jackc/pgx/v5"
)

const (
	identificationColumns = `id, employee_id, type, number, issuing_country, issue_date, expiry_date, is_verified, verified_by, verified_at, notes, ` + auditColumns
	certificateColumns    = `id, employee_id, name, issuing_organization, issue_date, expiry_date, credential_id, credential_url, verified, verified_by, verified_at, ` + auditColumns
	educationColumns      = `id, employee_id, institution, degree, field_of_study, start_date, end_date, grade, is_verified, verified_by, verified_at, ` + auditColumns
)

// NewCredentialRepositories は身分証・資格証明・学歴のリポジトリ一式を生成します。
func NewCredentialRepositories(pool pgdb.Queryer) credential.Repositories {
	return credential.Repositories{
		Identifications: &IdentificationRepository{pool: pool},
		Certificates:    &CertificateRepository{pool: pool},
		Educations:      &EducationRepository{pool: pool},
	}
}

// IdentificationRepository は身分証を PostgreSQL に保存します。
type IdentificationRepository struct {
	pool pgdb.Queryer
}

var _ credential.IdentificationRepository = (*IdentificationRepository)(nil)

// Save は身分証を登録または更新します。
func (r *IdentificationRepository) Save(ctx context.Context, doc *credential.Identification) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	args := append([]any{
		doc.ID,
		doc.EmployeeID,
		string(doc.Type),
		doc.Number,
		nullableString(doc.IssuingCountry),
		nullableDate(doc.IssueDate),
		nullableDate(doc.ExpiryDate),
		doc.IsVerified,
		nullableString(doc.VerifiedBy),
		nullableTimestamp(doc.VerifiedAt),
		nullableString(doc.Notes),
	}, auditArgs(doc.AuditInfo)...)

	_, err := exec.Exec(ctx, `
        INSERT INTO identifications (`+identificationColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        ON CONFLICT (id) DO UPDATE
           SET type = EXCLUDED.type,
               number = EXCLUDED.number,
               issuing_country = EXCLUDED.issuing_country,
               issue_date = EXCLUDED.issue_date,
               expiry_date = EXCLUDED.expiry_date,
               is_verified = EXCLUDED.is_verified,
               verified_by = EXCLUDED.verified_by,
               verified_at = EXCLUDED.verified_at,
               notes = EXCLUDED.notes,
               updated_at = EXCLUDED.updated_at,
               updated_by = EXCLUDED.updated_by,
               deleted_at = EXCLUDED.deleted_at,
               deleted_by = EXCLUDED.deleted_by
    `, args...)
	if err != nil {
		return translateCredentialPgError(err)
	}
	return nil
}

// FindByID は ID で身分証を取得します。
func (r *IdentificationRepository) FindByID(ctx context.Context, id string) (*credential.Identification, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+identificationColumns+`
          FROM identifications
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanIdentification(row)
	if err != nil {
		return nil, translateCredentialPgError(err)
	}
	return found, nil
}

// ListByEmployee は社員の身分証を返します。
func (r *IdentificationRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*credential.Identification, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+identificationColumns+`
          FROM identifications
         WHERE employee_id = $1 AND deleted_at IS NULL
         ORDER BY created_at, id
    `, employeeID)
	if err != nil {
		return nil, translateCredentialPgError(err)
	}
	return collect(rows, scanIdentification)
}

func scanIdentification(row pgx.Row) (*credential.Identification, error) {
	var (
		doc            credential.Identification
		docType        string
		issuingCountry sql.NullString
		issueDate      sql.NullTime
		expiryDate     sql.NullTime
		verifiedBy     sql.NullString
		verifiedAt     sql.NullTime
		notes          sql.NullString
		audit          auditRow
	)

	dest := append([]any{
		&doc.ID, &doc.EmployeeID, &docType, &doc.Number, &issuingCountry, &issueDate, &expiryDate,
		&doc.IsVerified, &verifiedBy, &verifiedAt, &notes,
	}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credential.ErrIdentificationNotFound
		}
		return nil, err
	}

	doc.Type = credential.IdentificationType(docType)
	doc.IssuingCountry = stringPtr(issuingCountry)
	doc.IssueDate = datePtr(issueDate)
	doc.ExpiryDate = datePtr(expiryDate)
	doc.VerifiedBy = stringPtr(verifiedBy)
	doc.VerifiedAt = timestampPtr(verifiedAt)
	doc.Notes = stringPtr(notes)
	doc.AuditInfo = audit.info()
	return &doc, nil
}

// CertificateRepository は資格証明を PostgreSQL に保存します。
type CertificateRepository struct {
	pool pgdb.Queryer
}

var _ credential.CertificateRepository = (*CertificateRepository)(nil)

// Save は資格証明を登録または更新します。
func (r *CertificateRepository) Save(ctx context.Context, cert *credential.Certificate) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	args := append([]any{
		cert.ID,
		cert.EmployeeID,
		cert.Name,
		cert.IssuingOrganization,
		dateOnly(cert.IssueDate),
		nullableDate(cert.ExpiryDate),
		nullableString(cert.CredentialID),
		nullableString(cert.CredentialURL),
		cert.Verified,
		nullableString(cert.VerifiedBy),
		nullableTimestamp(cert.VerifiedAt),
	}, auditArgs(cert.AuditInfo)...)

	_, err := exec.Exec(ctx, `
        INSERT INTO certificates (`+certificateColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        ON CONFLICT (id) DO UPDATE
           SET name = EXCLUDED.name,
               issuing_organization = EXCLUDED.issuing_organization,
               issue_date = EXCLUDED.issue_date,
               expiry_date = EXCLUDED.expiry_date,
               credential_id = EXCLUDED.credential_id,
               credential_url = EXCLUDED.credential_url,
               verified = EXCLUDED.verified,
               verified_by = EXCLUDED.verified_by,
               verified_at = EXCLUDED.verified_at,
               updated_at = EXCLUDED.updated_at,
               updated_by = EXCLUDED.updated_by,
               deleted_at = EXCLUDED.deleted_at,
               deleted_by = EXCLUDED.deleted_by
    `, args...)
	if err != nil {
		return translateCredentialPgError(err)
	}
	return nil
}

// FindByID は ID で資格証明を取得します。
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*credential.Certificate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+certificateColumns+`
          FROM certificates
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanCertificate(row)
	if err != nil {
		return nil, translateCredentialPgError(err)
	}
	return found, nil
}

// ListByEmployee は社員の資格証明を返します。
func (r *CertificateRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*credential.Certificate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+certificateColumns+`
          FROM certificates
         WHERE employee_id = $1 AND deleted_at IS NULL
         ORDER BY issue_date, id
    `, employeeID)
	if err != nil {
		return nil, translateCredentialPgError(err)
	}
	return collect(rows, scanCertificate)
}

func scanCertificate(row pgx.Row) (*credential.Certificate, error) {
	var (
		cert          credential.Certificate
		expiryDate    sql.NullTime
		credentialID  sql.NullString
		credentialURL sql.NullString
		verifiedBy    sql.NullString
		verifiedAt    sql.NullTime
		audit         auditRow
	)

	dest := append([]any{
		&cert.ID, &cert.EmployeeID, &cert.Name, &cert.IssuingOrganization, &cert.IssueDate, &expiryDate,
		&credentialID, &credentialURL, &cert.Verified, &verifiedBy, &verifiedAt,
	}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credential.ErrCertificateNotFound
		}
		return nil, err
	}

	cert.IssueDate = dateOnly(cert.IssueDate.UTC())
	cert.ExpiryDate = datePtr(expiryDate)
	cert.CredentialID = stringPtr(credentialID)
	cert.CredentialURL = stringPtr(credentialURL)
	cert.VerifiedBy = stringPtr(verifiedBy)
	cert.VerifiedAt = timestampPtr(verifiedAt)
	cert.AuditInfo = audit.info()
	return &cert, nil
}

// EducationRepository は学歴を PostgreSQL に保存します。
type EducationRepository struct {
	pool pgdb.Queryer
}

var _ credential.EducationRepository = (*EducationRepository)(nil)

// Save は学歴を登録または更新します。
func (r *EducationRepository) Save(ctx context.Context, edu *credential.Education) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	args := append([]any{
		edu.ID,
		edu.EmployeeID,
		edu.Institution,
		edu.Degree,
		nullableString(edu.FieldOfStudy),
		dateOnly(edu.StartDate),
		nullableDate(edu.EndDate),
		nullableString(edu.Grade),
		edu.IsVerified,
		nullableString(edu.VerifiedBy),
		nullableTimestamp(edu.VerifiedAt),
	}, auditArgs(edu.AuditInfo)...)

	_, err := exec.Exec(ctx, `
        INSERT INTO educations (`+educationColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        ON CONFLICT (id) DO UPDATE
           SET institution = EXCLUDED.institution,
               degree = EXCLUDED.degree,
               field_of_study = EXCLUDED.field_of_study,
               start_date = EXCLUDED.start_date,
               end_date = EXCLUDED.end_date,
               grade = EXCLUDED.grade,
               is_verified = EXCLUDED.is_verified,
               verified_by = EXCLUDED.verified_by,
               verified_at = EXCLUDED.verified_at,
               updated_at = EXCLUDED.updated_at,
               updated_by = EXCLUDED.updated_by,
               deleted_at = EXCLUDED.deleted_at,
               deleted_by = EXCLUDED.deleted_by
    `, args...)
	if err != nil {
		return translateCredentialPgError(err)
	}
	return nil
}

// FindByID は ID で学歴を取得します。
func (r *EducationRepository) FindByID(ctx context.Context, id string) (*credential.Education, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+educationColumns+`
          FROM educations
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanEducation(row)
	if err != nil {
		return nil, translateCredentialPgError(err)
	}
	return found, nil
}

// ListByEmployee は社員の学歴を入学日順に返します。
func (r *EducationRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*credential.Education, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+educationColumns+`
          FROM educations
         WHERE employee_id = $1 AND deleted_at IS NULL
         ORDER BY start_date, id
    `, employeeID)
	if err != nil {
		return nil, translateCredentialPgError(err)
	}
	return collect(rows, scanEducation)
}

func scanEducation(row pgx.Row) (*credential.Education, error) {
	var (
		edu          credential.Education
		fieldOfStudy sql.NullString
		endDate      sql.NullTime
		grade        sql.NullString
		verifiedBy   sql.NullString
		verifiedAt   sql.NullTime
		audit        auditRow
	)

	dest := append([]any{
		&edu.ID, &edu.EmployeeID, &edu.Institution, &edu.Degree, &fieldOfStudy, &edu.StartDate, &endDate,
		&grade, &edu.IsVerified, &verifiedBy, &verifiedAt,
	}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credential.ErrEducationNotFound
		}
		return nil, err
	}

	edu.FieldOfStudy = stringPtr(fieldOfStudy)
	edu.StartDate = dateOnly(edu.StartDate.UTC())
	edu.EndDate = datePtr(endDate)
	edu.Grade = stringPtr(grade)
	edu.VerifiedBy = stringPtr(verifiedBy)
	edu.VerifiedAt = timestampPtr(verifiedAt)
	edu.AuditInfo = audit.info()
	return &edu, nil
}

// collect は行を走査して scan の結果を集めます。
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var items []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, translateCredentialPgError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, translateCredentialPgError(err)
	}
	return items, nil
}

func translateCredentialPgError(err error) error {
	code, constraint, ok := pgErrorCode(err)
	if !ok {
		return err
	}
	switch {
	case code == uniqueViolationCode && constraint == "identifications_type_number_key":
		return credential.ErrDuplicateNumber
	case code == foreignKeyViolationCode:
		switch constraint {
		case "identifications_employee_id_fkey", "certificates_employee_id_fkey", "educations_employee_id_fkey":
			return employee.ErrEmployeeNotFound
		}
	}
	return err
}
