package department

import (
	"errors"

	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

var (
	// ErrDepartmentNotFound は部署が存在しない場合に返却されます。
	ErrDepartmentNotFound = errors.New("department: not found")
	// ErrCodeAlreadyExists は部署コード重複時に返却されます。
	ErrCodeAlreadyExists = errors.New("department: code already exists")
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("department: invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("department: invalid page token")
)

// ErrHierarchyCycle は親部署の割り当てで階層が循環する場合に返却されます。
var ErrHierarchyCycle error = &validation.ValidationError{
	Entity: entityDepartment,
	Field:  "parent_department_id",
	Reason: "would create a cycle in the department hierarchy",
}
