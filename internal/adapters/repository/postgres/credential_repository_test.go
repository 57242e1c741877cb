package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/credential"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestIdentificationRepository_Save_DuplicateNumber(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repos := NewCredentialRepositories(mock)

	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	expiry := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)
	doc := &credential.Identification{
		ID:         "id-1",
		EmployeeID: "emp-1",
		Type:       credential.IdentificationPassport,
		Number:     "A1234567",
		Expiry:     credential.Expiry{ExpiryDate: &expiry},
		AuditInfo:  testAudit(now),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO identifications")).
		WithArgs("id-1", "emp-1", "passport", "A1234567", nil, nil, expiry, false, nil, nil, nil,
			now, "hr-admin", now, "hr-admin", nil, nil).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "identifications_type_number_key"})

	if err := repos.Identifications.Save(context.Background(), doc); !errors.Is(err, credential.ErrDuplicateNumber) {
		t.Fatalf("expected ErrDuplicateNumber, got %v", err)
	}
}

func TestIdentificationRepository_FindByID(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repos := NewCredentialRepositories(mock)
	now := time.Now().UTC()
	expiry := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM identifications") + ".*" + regexp.QuoteMeta("WHERE id = $1")).
		WithArgs("id-1").
		WillReturnRows(pgxmock.NewRows(columns(identificationColumns)).AddRow(append([]any{
			"id-1", "emp-1", "passport", "A1234567", "EG", nil, expiry, true, "emp-hr", now, nil,
		}, auditValues(now)...)...))

	doc, err := repos.Identifications.FindByID(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if doc.ExpiryDate == nil || !doc.ExpiryDate.Equal(expiry) {
		t.Fatalf("unexpected expiry: %v", doc.ExpiryDate)
	}
	if !doc.IsVerified || doc.VerifiedBy == nil || *doc.VerifiedBy != "emp-hr" {
		t.Fatalf("unexpected verification: %+v", doc)
	}
	if doc.IsExpired(time.Date(2030, 2, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("document must be valid on its expiry day")
	}
}

func TestCertificateRepository_ListByEmployee(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repos := NewCredentialRepositories(mock)
	now := time.Now().UTC()
	issued := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM certificates") + ".*" + regexp.QuoteMeta("WHERE employee_id = $1")).
		WithArgs("emp-1").
		WillReturnRows(pgxmock.NewRows(columns(certificateColumns)).
			AddRow(append([]any{"cert-1", "emp-1", "CKA", "CNCF", issued, nil, "LF-123", "https://example.com/c/1", false, nil, nil}, auditValues(now)...)...))

	certs, err := repos.Certificates.ListByEmployee(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("ListByEmployee returned error: %v", err)
	}
	if len(certs) != 1 || certs[0].CredentialURL == nil || certs[0].ExpiryDate != nil {
		t.Fatalf("unexpected certificates: %+v", certs)
	}
}

func TestEducationRepository_FindByID_NotFound(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repos := NewCredentialRepositories(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM educations")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repos.Educations.FindByID(context.Background(), "missing"); !errors.Is(err, credential.ErrEducationNotFound) {
		t.Fatalf("expected ErrEducationNotFound, got %v", err)
	}
}

func TestEducationRepository_Save(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repos := NewCredentialRepositories(mock)

	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	start := time.Date(2015, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, 6, 30, 0, 0, 0, 0, time.UTC)
	edu := &credential.Education{
		ID:          "edu-1",
		EmployeeID:  "emp-1",
		Institution: "Cairo University",
		Degree:      "BSc",
		StartDate:   start,
		EndDate:     &end,
		AuditInfo:   testAudit(now),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO educations")).
		WithArgs("edu-1", "emp-1", "Cairo University", "BSc", nil, start, end, nil, false, nil, nil,
			now, "hr-admin", now, "hr-admin", nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repos.Educations.Save(context.Background(), edu); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
}
