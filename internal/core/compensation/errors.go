package compensation

import (
	"errors"

	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

var (
	ErrSalaryNotFound    = errors.New("salary: not found")
	ErrAllowanceNotFound = errors.New("salary: allowance not found")
	ErrDeductionNotFound = errors.New("salary: deduction not found")

	// ErrDuplicateAdjustment は同一給与内で ID が重複した場合のエラーです。
	ErrDuplicateAdjustment error = &validation.ValidationError{Entity: entitySalary, Field: "id", Reason: "adjustment already belongs to this salary"}
	// ErrForeignAdjustment は別の給与に属する手当・控除を追加しようとした場合のエラーです。
	ErrForeignAdjustment error = &validation.ValidationError{Entity: entitySalary, Field: "salary_id", Reason: "adjustment belongs to another salary"}
	// ErrSalaryOverlap は同じ社員の既存給与と期間が重なる場合のエラーです。
	ErrSalaryOverlap error = &validation.ValidationError{Entity: entitySalary, Field: "effective_date", Reason: "overlaps an existing salary of the employee"}
)
