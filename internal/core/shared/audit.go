package shared

import "time"

// AuditInfo は作成者・更新者・論理削除に関する監査情報を表します。
// 値の設定はサービス層と永続化境界が担い、エンティティの業務ロジックは参照しません。
type AuditInfo struct {
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
	UpdatedBy string
	DeletedAt *time.Time
	DeletedBy *string
}

// Stamp は新規作成時の監査情報を設定します。
func (a *AuditInfo) Stamp(now time.Time, actor string) {
	a.CreatedAt = now
	a.CreatedBy = actor
	a.UpdatedAt = now
	a.UpdatedBy = actor
}

// Touch は更新時の監査情報を設定します。
func (a *AuditInfo) Touch(now time.Time, actor string) {
	a.UpdatedAt = now
	a.UpdatedBy = actor
}

// MarkDeleted は論理削除を記録します。
func (a *AuditInfo) MarkDeleted(now time.Time, actor string) {
	deletedAt := now
	deletedBy := actor
	a.DeletedAt = &deletedAt
	a.DeletedBy = &deletedBy
	a.Touch(now, actor)
}

func (a AuditInfo) IsDeleted() bool {
	return a.DeletedAt != nil
}
