// Package app はリポジトリとドメインサービスを組み立てます。
package app

import (
	repo "github.com/Elzohary/unifiedcontract/internal/adapters/repository/postgres"
	"github.com/Elzohary/unifiedcontract/internal/core/attendance"
	"github.com/Elzohary/unifiedcontract/internal/core/compensation"
	"github.com/Elzohary/unifiedcontract/internal/core/credential"
	"github.com/Elzohary/unifiedcontract/internal/core/department"
	"github.com/Elzohary/unifiedcontract/internal/core/employee"
	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/leave"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/training"
	pgdb "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
)

// Services はアプリケーションのドメインサービス一式です。
type Services struct {
	Departments  *department.Service
	Employees    *employee.Service
	Compensation *compensation.Service
	Attendance   *attendance.Service
	Leaves       *leave.Service
	Trainings    *training.Service
	Credentials  *credential.Service
}

// Deps はサービス構築に必要な基盤です。Clock と Publisher は省略できます。
type Deps struct {
	DB        pgdb.Queryer
	Tx        shared.TransactionManager
	Clock     shared.Clock
	Publisher event.Publisher
}

// NewServices は PostgreSQL リポジトリを用いてサービスを構築します。
// 休暇サービスは社員サービスを残日数の更新先として利用します。
func NewServices(d Deps) *Services {
	employees := employee.NewService(repo.NewEmployeeRepository(d.DB), d.Clock, d.Tx, d.Publisher)

	return &Services{
		Departments:  department.NewService(repo.NewDepartmentRepository(d.DB), d.Clock, d.Tx, d.Publisher),
		Employees:    employees,
		Compensation: compensation.NewService(repo.NewSalaryRepository(d.DB), d.Clock, d.Tx, d.Publisher),
		Attendance:   attendance.NewService(repo.NewAttendanceRepository(d.DB), d.Clock, d.Tx, d.Publisher),
		Leaves:       leave.NewService(repo.NewLeaveRepository(d.DB), employees, d.Clock, d.Tx, d.Publisher),
		Trainings:    training.NewService(repo.NewTrainingRepository(d.DB), d.Clock, d.Tx, d.Publisher),
		Credentials:  credential.NewService(repo.NewCredentialRepositories(d.DB), d.Clock, d.Tx, d.Publisher),
	}
}

// Names はヘルスチェックに登録するサービス名を返します。
func (s *Services) Names() []string {
	return []string{"department", "employee", "compensation", "attendance", "leave", "training", "credential"}
}
