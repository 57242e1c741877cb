package credential

import (
	"net/url"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	entityCertificate = "certificate"

	maxCertificateNameLength = 200
	maxOrganizationLength    = 200
	maxCredentialIDLength    = 100
	maxURLLength             = 500
)

const (
	EventCertificateCreated              = "CertificateCreatedEvent"
	EventCertificateUpdated              = "CertificateUpdatedEvent"
	EventCertificateVerified             = "CertificateVerifiedEvent"
	EventCertificateVerificationRejected = "CertificateVerificationRejectedEvent"
)

// Certificate は社員の資格証明です。
// 検証と取り消しは冪等で、既に目的の状態なら何も記録しません。
// UpdateDetails で項目が 1 つでも指定されると検証状態を解除します。
type Certificate struct {
	ID                  string     `json:"id"`
	EmployeeID          string     `json:"employee_id"`
	Name                string     `json:"name"`
	IssuingOrganization string     `json:"issuing_organization"`
	IssueDate           time.Time  `json:"issue_date"`
	CredentialID        *string    `json:"credential_id,omitempty"`
	CredentialURL       *string    `json:"credential_url,omitempty"`
	Verified            bool       `json:"verified"`
	VerifiedBy          *string    `json:"verified_by,omitempty"`
	VerifiedAt          *time.Time `json:"verified_at,omitempty"`
	Expiry
	shared.AuditInfo `json:"-"`
}

// CertificateParams は資格証明の生成パラメータです。
type CertificateParams struct {
	ID                  string
	EmployeeID          string
	Name                string
	IssuingOrganization string
	IssueDate           time.Time
	ExpiryDate          *time.Time
	CredentialID        *string
	CredentialURL       *string
}

// CertificatePatch は資格証明の部分更新です。
type CertificatePatch struct {
	Name                *string
	IssuingOrganization *string
	IssueDate           *time.Time
	ExpiryDate          *time.Time
	CredentialID        *string
	CredentialURL       *string
}

func (p CertificatePatch) empty() bool {
	return p.Name == nil && p.IssuingOrganization == nil && p.IssueDate == nil &&
		p.ExpiryDate == nil && p.CredentialID == nil && p.CredentialURL == nil
}

// NewCertificate は未検証の資格証明を生成します。
func NewCertificate(p CertificateParams, sink event.Sink) (*Certificate, error) {
	id, err := validation.RequireID("id", p.ID)
	if err != nil {
		return nil, validation.WithEntity(entityCertificate, err)
	}
	employeeID, err := validation.RequireID("employee_id", p.EmployeeID)
	if err != nil {
		return nil, validation.WithEntity(entityCertificate, err)
	}
	name, err := validation.RequireNonEmpty("name", p.Name, maxCertificateNameLength)
	if err != nil {
		return nil, validation.WithEntity(entityCertificate, err)
	}
	org, err := validation.RequireNonEmpty("issuing_organization", p.IssuingOrganization, maxOrganizationLength)
	if err != nil {
		return nil, validation.WithEntity(entityCertificate, err)
	}
	if err := validation.RequireDate("issue_date", p.IssueDate); err != nil {
		return nil, validation.WithEntity(entityCertificate, err)
	}
	issue := p.IssueDate
	if err := validateIssueExpiry(entityCertificate, &issue, p.ExpiryDate); err != nil {
		return nil, err
	}
	credentialID, err := validation.RequireMaxLength("credential_id", p.CredentialID, maxCredentialIDLength)
	if err != nil {
		return nil, validation.WithEntity(entityCertificate, err)
	}
	credentialURL, err := normalizeURL(p.CredentialURL)
	if err != nil {
		return nil, err
	}

	c := &Certificate{
		ID:                  id,
		EmployeeID:          employeeID,
		Name:                name,
		IssuingOrganization: org,
		IssueDate:           issue,
		CredentialID:        credentialID,
		CredentialURL:       credentialURL,
		Expiry:              Expiry{ExpiryDate: shared.CloneTime(p.ExpiryDate)},
	}
	c.record(sink, EventCertificateCreated)
	return c, nil
}

func (c *Certificate) record(sink event.Sink, name string) {
	sink.Record(event.New(name, entityCertificate, c.ID, *c))
}

// Verify は資格証明を検証済みにします。既に検証済みなら何もしません。
func (c *Certificate) Verify(verifierID string, now time.Time, sink event.Sink) error {
	verifier, err := validation.RequireID("verified_by", verifierID)
	if err != nil {
		return validation.WithEntity(entityCertificate, err)
	}
	if c.Verified {
		return nil
	}
	c.Verified = true
	c.VerifiedBy = &verifier
	c.VerifiedAt = &now
	c.record(sink, EventCertificateVerified)
	return nil
}

// RejectVerification は検証を取り消します。未検証なら何もしません。
func (c *Certificate) RejectVerification(sink event.Sink) error {
	if !c.Verified {
		return nil
	}
	c.clearVerification()
	c.record(sink, EventCertificateVerificationRejected)
	return nil
}

func (c *Certificate) clearVerification() {
	c.Verified = false
	c.VerifiedBy = nil
	c.VerifiedAt = nil
}

// UpdateDetails は指定項目を反映します。項目が指定された時点で検証状態は解除されます。
func (c *Certificate) UpdateDetails(p CertificatePatch, sink event.Sink) (bool, error) {
	if p.empty() {
		return false, nil
	}
	next := *c

	if p.Name != nil {
		name, err := validation.RequireNonEmpty("name", *p.Name, maxCertificateNameLength)
		if err != nil {
			return false, validation.WithEntity(entityCertificate, err)
		}
		next.Name = name
	}
	if p.IssuingOrganization != nil {
		org, err := validation.RequireNonEmpty("issuing_organization", *p.IssuingOrganization, maxOrganizationLength)
		if err != nil {
			return false, validation.WithEntity(entityCertificate, err)
		}
		next.IssuingOrganization = org
	}
	if p.IssueDate != nil {
		if err := validation.RequireDate("issue_date", *p.IssueDate); err != nil {
			return false, validation.WithEntity(entityCertificate, err)
		}
		next.IssueDate = *p.IssueDate
	}
	if p.ExpiryDate != nil {
		next.ExpiryDate = shared.CloneTime(p.ExpiryDate)
	}
	if err := validateIssueExpiry(entityCertificate, &next.IssueDate, next.ExpiryDate); err != nil {
		return false, err
	}
	if p.CredentialID != nil {
		credentialID, err := validation.RequireMaxLength("credential_id", p.CredentialID, maxCredentialIDLength)
		if err != nil {
			return false, validation.WithEntity(entityCertificate, err)
		}
		next.CredentialID = credentialID
	}
	if p.CredentialURL != nil {
		credentialURL, err := normalizeURL(p.CredentialURL)
		if err != nil {
			return false, err
		}
		next.CredentialURL = credentialURL
	}

	changed := next.Name != c.Name ||
		next.IssuingOrganization != c.IssuingOrganization ||
		!next.IssueDate.Equal(c.IssueDate) ||
		!shared.EqualTime(next.ExpiryDate, c.ExpiryDate) ||
		!shared.EqualString(next.CredentialID, c.CredentialID) ||
		!shared.EqualString(next.CredentialURL, c.CredentialURL) ||
		c.Verified
	if !changed {
		return false, nil
	}

	next.clearVerification()
	*c = next
	c.record(sink, EventCertificateUpdated)
	return true, nil
}

func normalizeURL(raw *string) (*string, error) {
	v, err := validation.RequireMaxLength("credential_url", raw, maxURLLength)
	if err != nil || v == nil {
		return v, validation.WithEntity(entityCertificate, err)
	}
	u, err := url.ParseRequestURI(*v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, validation.Invalid(entityCertificate, "credential_url", "must be an absolute http(s) URL")
	}
	return v, nil
}
