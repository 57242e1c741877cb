package credential

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

// DefaultExpiryThresholdDays は期限間近とみなす既定の日数です。
const DefaultExpiryThresholdDays = 30

// Service は書類の登録・更新・検証に関するユースケースをまとめます。
type Service struct {
	repos     Repositories
	clock     shared.Clock
	tx        shared.TransactionManager
	publisher event.Publisher
}

// NewService は Service を生成します。
func NewService(repos Repositories, clock shared.Clock, tx shared.TransactionManager, publisher event.Publisher) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	if publisher == nil {
		publisher = event.Discard
	}
	return &Service{repos: repos, clock: clock, tx: tx, publisher: publisher}
}

// ExpiringDocument は期限間近の書類の要約です。
type ExpiringDocument struct {
	Kind       string
	ID         string
	EmployeeID string
	Title      string
	ExpiryDate time.Time
	DaysLeft   int
}

// CreateIdentification は身分証を登録します。
func (s *Service) CreateIdentification(ctx context.Context, p IdentificationParams) (*Identification, error) {
	p.ID = shared.NewID()
	buf := event.NewBuffer(s.clock.Now)
	doc, err := NewIdentification(p, buf)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, &doc.AuditInfo, buf, func(txCtx context.Context) error {
		return s.repos.Identifications.Save(txCtx, doc)
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateIdentification は身分証を部分更新します。
func (s *Service) UpdateIdentification(ctx context.Context, id string, patch IdentificationPatch) (*Identification, error) {
	return mutate(ctx, s, id, s.repos.Identifications.FindByID, s.repos.Identifications.Save,
		func(doc *Identification, sink event.Sink) error {
			_, err := doc.UpdateDetails(patch, sink)
			return err
		})
}

// VerifyIdentification は身分証を検証済みにします。
func (s *Service) VerifyIdentification(ctx context.Context, id, verifierID string) (*Identification, error) {
	return mutate(ctx, s, id, s.repos.Identifications.FindByID, s.repos.Identifications.Save,
		func(doc *Identification, sink event.Sink) error {
			return doc.Verify(verifierID, s.clock.Now(), sink)
		})
}

// RejectIdentification は身分証の検証を取り消します。
func (s *Service) RejectIdentification(ctx context.Context, id string) (*Identification, error) {
	return mutate(ctx, s, id, s.repos.Identifications.FindByID, s.repos.Identifications.Save,
		func(doc *Identification, sink event.Sink) error {
			return doc.RejectVerification(sink)
		})
}

// GetIdentification は身分証を取得します。
func (s *Service) GetIdentification(ctx context.Context, id string) (*Identification, error) {
	return get(ctx, s, id, s.repos.Identifications.FindByID)
}

// CreateCertificate は資格証明を登録します。
func (s *Service) CreateCertificate(ctx context.Context, p CertificateParams) (*Certificate, error) {
	p.ID = shared.NewID()
	buf := event.NewBuffer(s.clock.Now)
	cert, err := NewCertificate(p, buf)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, &cert.AuditInfo, buf, func(txCtx context.Context) error {
		return s.repos.Certificates.Save(txCtx, cert)
	}); err != nil {
		return nil, err
	}
	return cert, nil
}

// UpdateCertificate は資格証明を部分更新します。
func (s *Service) UpdateCertificate(ctx context.Context, id string, patch CertificatePatch) (*Certificate, error) {
	return mutate(ctx, s, id, s.repos.Certificates.FindByID, s.repos.Certificates.Save,
		func(cert *Certificate, sink event.Sink) error {
			_, err := cert.UpdateDetails(patch, sink)
			return err
		})
}

// VerifyCertificate は資格証明を検証済みにします。
func (s *Service) VerifyCertificate(ctx context.Context, id, verifierID string) (*Certificate, error) {
	return mutate(ctx, s, id, s.repos.Certificates.FindByID, s.repos.Certificates.Save,
		func(cert *Certificate, sink event.Sink) error {
			return cert.Verify(verifierID, s.clock.Now(), sink)
		})
}

// RejectCertificate は資格証明の検証を取り消します。
func (s *Service) RejectCertificate(ctx context.Context, id string) (*Certificate, error) {
	return mutate(ctx, s, id, s.repos.Certificates.FindByID, s.repos.Certificates.Save,
		func(cert *Certificate, sink event.Sink) error {
			return cert.RejectVerification(sink)
		})
}

// GetCertificate は資格証明を取得します。
func (s *Service) GetCertificate(ctx context.Context, id string) (*Certificate, error) {
	return get(ctx, s, id, s.repos.Certificates.FindByID)
}

// CreateEducation は学歴を登録します。
func (s *Service) CreateEducation(ctx context.Context, p EducationParams) (*Education, error) {
	p.ID = shared.NewID()
	buf := event.NewBuffer(s.clock.Now)
	edu, err := NewEducation(p, buf)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, &edu.AuditInfo, buf, func(txCtx context.Context) error {
		return s.repos.Educations.Save(txCtx, edu)
	}); err != nil {
		return nil, err
	}
	return edu, nil
}

// UpdateEducation は学歴を部分更新します。
func (s *Service) UpdateEducation(ctx context.Context, id string, patch EducationPatch) (*Education, error) {
	return mutate(ctx, s, id, s.repos.Educations.FindByID, s.repos.Educations.Save,
		func(edu *Education, sink event.Sink) error {
			_, err := edu.UpdateDetails(patch, sink)
			return err
		})
}

// VerifyEducation は学歴を検証済みにします。
func (s *Service) VerifyEducation(ctx context.Context, id, verifierID string) (*Education, error) {
	return mutate(ctx, s, id, s.repos.Educations.FindByID, s.repos.Educations.Save,
		func(edu *Education, sink event.Sink) error {
			return edu.Verify(verifierID, s.clock.Now(), sink)
		})
}

// RejectEducation は学歴の検証を取り消します。
func (s *Service) RejectEducation(ctx context.Context, id string) (*Education, error) {
	return mutate(ctx, s, id, s.repos.Educations.FindByID, s.repos.Educations.Save,
		func(edu *Education, sink event.Sink) error {
			return edu.RejectVerification(sink)
		})
}

// GetEducation は学歴を取得します。
func (s *Service) GetEducation(ctx context.Context, id string) (*Education, error) {
	return get(ctx, s, id, s.repos.Educations.FindByID)
}

// ListExpiringSoon は社員の身分証と資格証明のうち、期限まで thresholdDays 日以内のものを残り日数順に返します。
// thresholdDays が 0 以下の場合は DefaultExpiryThresholdDays を使います。
func (s *Service) ListExpiringSoon(ctx context.Context, employeeID string, thresholdDays int) ([]ExpiringDocument, error) {
	if _, err := validation.RequireID("employee_id", employeeID); err != nil {
		return nil, err
	}
	if thresholdDays <= 0 {
		thresholdDays = DefaultExpiryThresholdDays
	}
	now := s.clock.Now()

	var result []ExpiringDocument
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		docs, err := s.repos.Identifications.ListByEmployee(txCtx, employeeID)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if doc.IsExpiringSoon(now, thresholdDays) {
				days, _ := doc.DaysUntilExpiry(now)
				result = append(result, ExpiringDocument{
					Kind: entityIdentification, ID: doc.ID, EmployeeID: doc.EmployeeID,
					Title: string(doc.Type), ExpiryDate: *doc.ExpiryDate, DaysLeft: days,
				})
			}
		}

		certs, err := s.repos.Certificates.ListByEmployee(txCtx, employeeID)
		if err != nil {
			return err
		}
		for _, cert := range certs {
			if cert.IsExpiringSoon(now, thresholdDays) {
				days, _ := cert.DaysUntilExpiry(now)
				result = append(result, ExpiringDocument{
					Kind: entityCertificate, ID: cert.ID, EmployeeID: cert.EmployeeID,
					Title: cert.Name, ExpiryDate: *cert.ExpiryDate, DaysLeft: days,
				})
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DaysLeft < result[j].DaysLeft
	})
	return result, nil
}

func (s *Service) create(ctx context.Context, audit *shared.AuditInfo, buf *event.Buffer, save func(context.Context) error) error {
	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		audit.Stamp(s.clock.Now(), shared.ActorFromContext(ctx))
		if err := save(txCtx); err != nil {
			return err
		}
		return s.flush(txCtx, buf)
	})
}

func (s *Service) flush(ctx context.Context, buf *event.Buffer) error {
	if err := buf.Flush(ctx, s.publisher); err != nil {
		return fmt.Errorf("credential: publish events: %w", err)
	}
	return nil
}

type auditable interface {
	Touch(now time.Time, actor string)
}

// mutate は書類を読み込んで fn を適用し、イベントが記録された場合だけ保存と配信を行います。
func mutate[T auditable](
	ctx context.Context,
	s *Service,
	id string,
	find func(context.Context, string) (T, error),
	save func(context.Context, T) error,
	fn func(T, event.Sink) error,
) (T, error) {
	var zero T
	if _, err := validation.RequireID("id", id); err != nil {
		return zero, err
	}

	var updated T
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		doc, err := find(txCtx, id)
		if err != nil {
			return err
		}
		buf := event.NewBuffer(s.clock.Now)
		if err := fn(doc, buf); err != nil {
			return err
		}
		if buf.Len() > 0 {
			doc.Touch(s.clock.Now(), shared.ActorFromContext(ctx))
			if err := save(txCtx, doc); err != nil {
				return err
			}
			if err := s.flush(txCtx, buf); err != nil {
				return err
			}
		}
		updated = doc
		return nil
	}); err != nil {
		return zero, err
	}
	return updated, nil
}

func get[T any](ctx context.Context, s *Service, id string, find func(context.Context, string) (T, error)) (T, error) {
	var zero T
	if _, err := validation.RequireID("id", id); err != nil {
		return zero, err
	}

	var result T
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := find(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return zero, err
	}
	return result, nil
}
