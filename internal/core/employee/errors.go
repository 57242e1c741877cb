package employee

import (
	"errors"

	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

var (
	ErrEmployeeNotFound            = errors.New("employee: not found")
	ErrSkillNotFound               = errors.New("employee: skill not found")
	ErrEmployeeNumberAlreadyExists = errors.New("employee: employee number already exists")
	ErrEmailAlreadyExists          = errors.New("employee: email already exists")
	ErrInvalidPageSize             = errors.New("employee: invalid page size")
	ErrInvalidPageToken            = errors.New("employee: invalid page token")
)

var (
	// ErrInsufficientLeaveBalance は休暇残日数が不足している場合に返却されます。
	ErrInsufficientLeaveBalance error = &validation.ValidationError{
		Entity: entityEmployee,
		Field:  "off_days",
		Reason: "insufficient leave balance",
	}
	// ErrDuplicateSkill は同名のスキルが登録済みの場合に返却されます。
	ErrDuplicateSkill error = &validation.ValidationError{
		Entity: entityEmployee,
		Field:  "skills",
		Reason: "skill already registered",
	}
	// ErrManagementCycle は上長の割り当てで指揮系統が循環する場合に返却されます。
	ErrManagementCycle error = &validation.ValidationError{
		Entity: entityEmployee,
		Field:  "direct_manager_id",
		Reason: "would create a cycle in the management chain",
	}
)
