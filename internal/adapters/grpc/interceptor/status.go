// Package interceptor はドメインエラーを gRPC ステータスへ変換する unary インターセプターを提供します。
package interceptor

import (
	"context"
	"errors"

	"github.com/Elzohary/unifiedcontract/internal/core/attendance"
	"github.com/Elzohary/unifiedcontract/internal/core/compensation"
	"github.com/Elzohary/unifiedcontract/internal/core/credential"
	"github.com/Elzohary/unifiedcontract/internal/core/department"
	"github.com/Elzohary/unifiedcontract/internal/core/employee"
	"github.com/Elzohary/unifiedcontract/internal/core/leave"
	"github.com/Elzohary/unifiedcontract/internal/core/training"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatusError はドメインエラーを対応する gRPC ステータスエラーに変換します。
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case validation.IsValidation(err),
		errors.Is(err, department.ErrInvalidPageSize),
		errors.Is(err, department.ErrInvalidPageToken),
		errors.Is(err, employee.ErrInvalidPageSize),
		errors.Is(err, employee.ErrInvalidPageToken):
		return invalidArgument(err)
	case validation.IsState(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, department.ErrCodeAlreadyExists),
		errors.Is(err, employee.ErrEmployeeNumberAlreadyExists),
		errors.Is(err, employee.ErrEmailAlreadyExists),
		errors.Is(err, attendance.ErrAttendanceAlreadyExists),
		errors.Is(err, credential.ErrDuplicateNumber):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, department.ErrDepartmentNotFound),
		errors.Is(err, employee.ErrEmployeeNotFound),
		errors.Is(err, employee.ErrSkillNotFound),
		errors.Is(err, compensation.ErrSalaryNotFound),
		errors.Is(err, compensation.ErrAllowanceNotFound),
		errors.Is(err, compensation.ErrDeductionNotFound),
		errors.Is(err, attendance.ErrAttendanceNotFound),
		errors.Is(err, leave.ErrLeaveNotFound),
		errors.Is(err, training.ErrTrainingNotFound),
		errors.Is(err, credential.ErrIdentificationNotFound),
		errors.Is(err, credential.ErrCertificateNotFound),
		errors.Is(err, credential.ErrEducationNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// UnaryErrors はハンドラーが返したエラーを ToStatusError で変換します。
func UnaryErrors() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, ToStatusError(err)
		}
		return resp, nil
	}
}

// invalidArgument は ValidationError の項目名を BadRequest の詳細として付与します。
func invalidArgument(err error) error {
	st := status.New(codes.InvalidArgument, err.Error())
	var ve *validation.ValidationError
	if !errors.As(err, &ve) || ve.Field == "" {
		return st.Err()
	}
	detailed, derr := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: ve.Field, Description: ve.Reason},
		},
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}
