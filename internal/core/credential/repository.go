package credential

import "context"

// IdentificationRepository は身分証の永続化の抽象です。
type IdentificationRepository interface {
	Save(ctx context.Context, doc *Identification) error
	FindByID(ctx context.Context, id string) (*Identification, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Identification, error)
}

// CertificateRepository は資格証明の永続化の抽象です。
type CertificateRepository interface {
	Save(ctx context.Context, cert *Certificate) error
	FindByID(ctx context.Context, id string) (*Certificate, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Certificate, error)
}

// EducationRepository は学歴の永続化の抽象です。
type EducationRepository interface {
	Save(ctx context.Context, edu *Education) error
	FindByID(ctx context.Context, id string) (*Education, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Education, error)
}

// Repositories は Service が利用するリポジトリの組です。
type Repositories struct {
	Identifications IdentificationRepository
	Certificates    CertificateRepository
	Educations      EducationRepository
}
