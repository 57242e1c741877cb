package credential

import (
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	entityIdentification = "identification"

	maxIdentificationTypeLength = 50
	maxNumberLength             = 50
	maxCountryLength            = 100
	maxNotesLength              = 500
)

const (
	EventIdentificationCreated              = "IdentificationCreatedEvent"
	EventIdentificationUpdated              = "IdentificationUpdatedEvent"
	EventIdentificationVerified             = "IdentificationVerifiedEvent"
	EventIdentificationVerificationRejected = "IdentificationVerificationRejectedEvent"
)

// IdentificationType は身分証の種類です。
type IdentificationType string

const (
	IdentificationPassport        IdentificationType = "passport"
	IdentificationNationalID      IdentificationType = "national_id"
	IdentificationDriverLicense   IdentificationType = "driver_license"
	IdentificationResidencePermit IdentificationType = "residence_permit"
)

// Identification は社員の身分証です。
// 検証は未検証からのみ、取り消しは検証済みからのみ行えます。
// いずれかの項目の値が変わると再検証が必要になります。
type Identification struct {
	ID             string             `json:"id"`
	EmployeeID     string             `json:"employee_id"`
	Type           IdentificationType `json:"type"`
	Number         string             `json:"number"`
	IssuingCountry *string            `json:"issuing_country,omitempty"`
	IssueDate      *time.Time         `json:"issue_date,omitempty"`
	IsVerified     bool               `json:"is_verified"`
	VerifiedBy     *string            `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time         `json:"verified_at,omitempty"`
	Notes          *string            `json:"notes,omitempty"`
	Expiry
	shared.AuditInfo `json:"-"`
}

// IdentificationParams は身分証の生成パラメータです。
type IdentificationParams struct {
	ID             string
	EmployeeID     string
	Type           IdentificationType
	Number         string
	IssuingCountry *string
	IssueDate      *time.Time
	ExpiryDate     *time.Time
	Notes          *string
}

// IdentificationPatch は身分証の部分更新です。
type IdentificationPatch struct {
	Type           *IdentificationType
	Number         *string
	IssuingCountry *string
	IssueDate      *time.Time
	ExpiryDate     *time.Time
	Notes          *string
}

// NewIdentification は未検証の身分証を生成します。
func NewIdentification(p IdentificationParams, sink event.Sink) (*Identification, error) {
	id, err := validation.RequireID("id", p.ID)
	if err != nil {
		return nil, validation.WithEntity(entityIdentification, err)
	}
	employeeID, err := validation.RequireID("employee_id", p.EmployeeID)
	if err != nil {
		return nil, validation.WithEntity(entityIdentification, err)
	}
	typ, err := validation.RequireNonEmpty("type", string(p.Type), maxIdentificationTypeLength)
	if err != nil {
		return nil, validation.WithEntity(entityIdentification, err)
	}
	number, err := validation.RequireNonEmpty("number", p.Number, maxNumberLength)
	if err != nil {
		return nil, validation.WithEntity(entityIdentification, err)
	}
	country, err := validation.RequireMaxLength("issuing_country", p.IssuingCountry, maxCountryLength)
	if err != nil {
		return nil, validation.WithEntity(entityIdentification, err)
	}
	if err := validateIssueExpiry(entityIdentification, p.IssueDate, p.ExpiryDate); err != nil {
		return nil, err
	}
	notes, err := validation.RequireMaxLength("notes", p.Notes, maxNotesLength)
	if err != nil {
		return nil, validation.WithEntity(entityIdentification, err)
	}

	doc := &Identification{
		ID:             id,
		EmployeeID:     employeeID,
		Type:           IdentificationType(typ),
		Number:         number,
		IssuingCountry: country,
		IssueDate:      shared.CloneTime(p.IssueDate),
		Notes:          notes,
		Expiry:         Expiry{ExpiryDate: shared.CloneTime(p.ExpiryDate)},
	}
	doc.record(sink, EventIdentificationCreated)
	return doc, nil
}

func (d *Identification) record(sink event.Sink, name string) {
	sink.Record(event.New(name, entityIdentification, d.ID, *d))
}

// Verify は身分証を検証済みにします。既に検証済みの場合は失敗します。
func (d *Identification) Verify(verifierID string, now time.Time, sink event.Sink) error {
	if d.IsVerified {
		return validation.InvalidState(entityIdentification, "verify", "verified")
	}
	verifier, err := validation.RequireID("verified_by", verifierID)
	if err != nil {
		return validation.WithEntity(entityIdentification, err)
	}
	d.IsVerified = true
	d.VerifiedBy = &verifier
	d.VerifiedAt = &now
	d.record(sink, EventIdentificationVerified)
	return nil
}

// RejectVerification は検証を取り消します。未検証の場合は失敗します。
func (d *Identification) RejectVerification(sink event.Sink) error {
	if !d.IsVerified {
		return validation.InvalidState(entityIdentification, "reject verification", "unverified")
	}
	d.clearVerification()
	d.record(sink, EventIdentificationVerificationRejected)
	return nil
}

func (d *Identification) clearVerification() {
	d.IsVerified = false
	d.VerifiedBy = nil
	d.VerifiedAt = nil
}

// UpdateDetails は変更された項目を反映し、値が変わった場合は検証状態をリセットします。
func (d *Identification) UpdateDetails(p IdentificationPatch, sink event.Sink) (bool, error) {
	next := *d

	if p.Type != nil {
		typ, err := validation.RequireNonEmpty("type", string(*p.Type), maxIdentificationTypeLength)
		if err != nil {
			return false, validation.WithEntity(entityIdentification, err)
		}
		next.Type = IdentificationType(typ)
	}
	if p.Number != nil {
		number, err := validation.RequireNonEmpty("number", *p.Number, maxNumberLength)
		if err != nil {
			return false, validation.WithEntity(entityIdentification, err)
		}
		next.Number = number
	}
	if p.IssuingCountry != nil {
		country, err := validation.RequireMaxLength("issuing_country", p.IssuingCountry, maxCountryLength)
		if err != nil {
			return false, validation.WithEntity(entityIdentification, err)
		}
		next.IssuingCountry = country
	}
	if p.IssueDate != nil {
		next.IssueDate = shared.CloneTime(p.IssueDate)
	}
	if p.ExpiryDate != nil {
		next.ExpiryDate = shared.CloneTime(p.ExpiryDate)
	}
	if err := validateIssueExpiry(entityIdentification, next.IssueDate, next.ExpiryDate); err != nil {
		return false, err
	}
	if p.Notes != nil {
		notes, err := validation.RequireMaxLength("notes", p.Notes, maxNotesLength)
		if err != nil {
			return false, validation.WithEntity(entityIdentification, err)
		}
		next.Notes = notes
	}

	changed := next.Type != d.Type ||
		next.Number != d.Number ||
		!shared.EqualString(next.IssuingCountry, d.IssuingCountry) ||
		!shared.EqualTime(next.IssueDate, d.IssueDate) ||
		!shared.EqualTime(next.ExpiryDate, d.ExpiryDate) ||
		!shared.EqualString(next.Notes, d.Notes)
	if !changed {
		return false, nil
	}

	next.clearVerification()
	*d = next
	d.record(sink, EventIdentificationUpdated)
	return true, nil
}
