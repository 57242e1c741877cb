package credential

import (
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	entityEducation = "education"

	maxInstitutionLength = 200
	maxDegreeLength      = 100
	maxFieldLength       = 100
	maxGradeLength       = 20
)

const (
	EventEducationCreated              = "EducationCreatedEvent"
	EventEducationUpdated              = "EducationUpdatedEvent"
	EventEducationVerified             = "EducationVerifiedEvent"
	EventEducationVerificationRejected = "EducationVerificationRejectedEvent"
)

// Education は社員の学歴です。検証の規則は Identification と同じです。
type Education struct {
	ID               string     `json:"id"`
	EmployeeID       string     `json:"employee_id"`
	Institution      string     `json:"institution"`
	Degree           string     `json:"degree"`
	FieldOfStudy     *string    `json:"field_of_study,omitempty"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	Grade            *string    `json:"grade,omitempty"`
	IsVerified       bool       `json:"is_verified"`
	VerifiedBy       *string    `json:"verified_by,omitempty"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
	shared.AuditInfo `json:"-"`
}

// EducationParams は学歴の生成パラメータです。
type EducationParams struct {
	ID           string
	EmployeeID   string
	Institution  string
	Degree       string
	FieldOfStudy *string
	StartDate    time.Time
	EndDate      *time.Time
	Grade        *string
}

// EducationPatch は学歴の部分更新です。
type EducationPatch struct {
	Institution  *string
	Degree       *string
	FieldOfStudy *string
	StartDate    *time.Time
	EndDate      *time.Time
	Grade        *string
}

// NewEducation は未検証の学歴を生成します。
func NewEducation(p EducationParams, sink event.Sink) (*Education, error) {
	id, err := validation.RequireID("id", p.ID)
	if err != nil {
		return nil, validation.WithEntity(entityEducation, err)
	}
	employeeID, err := validation.RequireID("employee_id", p.EmployeeID)
	if err != nil {
		return nil, validation.WithEntity(entityEducation, err)
	}
	institution, err := validation.RequireNonEmpty("institution", p.Institution, maxInstitutionLength)
	if err != nil {
		return nil, validation.WithEntity(entityEducation, err)
	}
	degree, err := validation.RequireNonEmpty("degree", p.Degree, maxDegreeLength)
	if err != nil {
		return nil, validation.WithEntity(entityEducation, err)
	}
	field, err := validation.RequireMaxLength("field_of_study", p.FieldOfStudy, maxFieldLength)
	if err != nil {
		return nil, validation.WithEntity(entityEducation, err)
	}
	if err := validateStudyPeriod(p.StartDate, p.EndDate); err != nil {
		return nil, err
	}
	grade, err := validation.RequireMaxLength("grade", p.Grade, maxGradeLength)
	if err != nil {
		return nil, validation.WithEntity(entityEducation, err)
	}

	e := &Education{
		ID:           id,
		EmployeeID:   employeeID,
		Institution:  institution,
		Degree:       degree,
		FieldOfStudy: field,
		StartDate:    p.StartDate,
		EndDate:      shared.CloneTime(p.EndDate),
		Grade:        grade,
	}
	e.record(sink, EventEducationCreated)
	return e, nil
}

func validateStudyPeriod(start time.Time, end *time.Time) error {
	if err := validation.RequireDate("start_date", start); err != nil {
		return validation.WithEntity(entityEducation, err)
	}
	if end == nil {
		return nil
	}
	if err := validation.RequireDateOrder("start_date", start, "end_date", *end); err != nil {
		return validation.WithEntity(entityEducation, err)
	}
	return nil
}

func (e *Education) record(sink event.Sink, name string) {
	sink.Record(event.New(name, entityEducation, e.ID, *e))
}

// IsOngoing は now の時点で在学中かを返します。
func (e *Education) IsOngoing(now time.Time) bool {
	if now.Before(e.StartDate) {
		return false
	}
	return e.EndDate == nil || e.EndDate.After(now)
}

// Verify は学歴を検証済みにします。既に検証済みの場合は失敗します。
func (e *Education) Verify(verifierID string, now time.Time, sink event.Sink) error {
	if e.IsVerified {
		return validation.InvalidState(entityEducation, "verify", "verified")
	}
	verifier, err := validation.RequireID("verified_by", verifierID)
	if err != nil {
		return validation.WithEntity(entityEducation, err)
	}
	e.IsVerified = true
	e.VerifiedBy = &verifier
	e.VerifiedAt = &now
	e.record(sink, EventEducationVerified)
	return nil
}

// RejectVerification は検証を取り消します。未検証の場合は失敗します。
func (e *Education) RejectVerification(sink event.Sink) error {
	if !e.IsVerified {
		return validation.InvalidState(entityEducation, "reject verification", "unverified")
	}
	e.clearVerification()
	e.record(sink, EventEducationVerificationRejected)
	return nil
}

func (e *Education) clearVerification() {
	e.IsVerified = false
	e.VerifiedBy = nil
	e.VerifiedAt = nil
}

// UpdateDetails は変更された項目を反映し、値が変わった場合は検証状態をリセットします。
func (e *Education) UpdateDetails(p EducationPatch, sink event.Sink) (bool, error) {
	next := *e

	if p.Institution != nil {
		v, err := validation.RequireNonEmpty("institution", *p.Institution, maxInstitutionLength)
		if err != nil {
			return false, validation.WithEntity(entityEducation, err)
		}
		next.Institution = v
	}
	if p.Degree != nil {
		v, err := validation.RequireNonEmpty("degree", *p.Degree, maxDegreeLength)
		if err != nil {
			return false, validation.WithEntity(entityEducation, err)
		}
		next.Degree = v
	}
	if p.FieldOfStudy != nil {
		v, err := validation.RequireMaxLength("field_of_study", p.FieldOfStudy, maxFieldLength)
		if err != nil {
			return false, validation.WithEntity(entityEducation, err)
		}
		next.FieldOfStudy = v
	}
	if p.StartDate != nil {
		next.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		next.EndDate = shared.CloneTime(p.EndDate)
	}
	if err := validateStudyPeriod(next.StartDate, next.EndDate); err != nil {
		return false, err
	}
	if p.Grade != nil {
		v, err := validation.RequireMaxLength("grade", p.Grade, maxGradeLength)
		if err != nil {
			return false, validation.WithEntity(entityEducation, err)
		}
		next.Grade = v
	}

	changed := next.Institution != e.Institution ||
		next.Degree != e.Degree ||
		!shared.EqualString(next.FieldOfStudy, e.FieldOfStudy) ||
		!next.StartDate.Equal(e.StartDate) ||
		!shared.EqualTime(next.EndDate, e.EndDate) ||
		!shared.EqualString(next.Grade, e.Grade)
	if !changed {
		return false, nil
	}

	next.clearVerification()
	*e = next
	e.record(sink, EventEducationUpdated)
	return true, nil
}
