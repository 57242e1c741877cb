package department

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeRepo struct {
	departments map[string]*Department
	order       []string
	// shared は保存済みのポインタをそのまま返します。
	shared bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{departments: make(map[string]*Department)}
}

func (r *fakeRepo) Save(_ context.Context, department *Department) error {
	if _, ok := r.departments[department.ID]; !ok {
		r.order = append(r.order, department.ID)
	}
	r.departments[department.ID] = cloneDepartment(department)
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*Department, error) {
	department, ok := r.departments[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	if r.shared {
		return department, nil
	}
	return cloneDepartment(department), nil
}

func (r *fakeRepo) FindByCode(_ context.Context, code string) (*Department, error) {
	for _, department := range r.departments {
		if department.Code == code {
			return cloneDepartment(department), nil
		}
	}
	return nil, ErrDepartmentNotFound
}

func (r *fakeRepo) ParentOf(_ context.Context, id string) (*string, error) {
	department, ok := r.departments[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	if department.ParentDepartmentID == nil {
		return nil, nil
	}
	parent := *department.ParentDepartmentID
	return &parent, nil
}

func (r *fakeRepo) List(_ context.Context, filter ListFilter) ([]*Department, string, error) {
	var filtered []*Department
	for _, id := range r.order {
		department := r.departments[id]
		if filter.IsActive != nil && department.IsActive != *filter.IsActive {
			continue
		}
		filtered = append(filtered, cloneDepartment(department))
	}

	if filter.Offset > len(filtered) {
		return []*Department{}, "", nil
	}

	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	var nextToken string
	if end < len(filtered) {
		nextToken = strconv.Itoa(end)
	}
	return filtered[filter.Offset:end], nextToken, nil
}

func cloneDepartment(department *Department) *Department {
	copy := *department
	if department.ParentDepartmentID != nil {
		parent := *department.ParentDepartmentID
		copy.ParentDepartmentID = &parent
	}
	if department.ManagerID != nil {
		manager := *department.ManagerID
		copy.ManagerID = &manager
	}
	return &copy
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	clk := &stubClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewService(repo, clk, nil, nil), repo
}

func mustCreate(t *testing.T, svc *Service, code string, parent *string) *Department {
	t.Helper()
	d, err := svc.CreateDepartment(context.Background(), CreateDepartmentInput{
		Name:               "Department " + code,
		Code:               code,
		ParentDepartmentID: parent,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestService_CreateDepartment_DuplicateCode(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	mustCreate(t, svc, "eng", nil)

	_, err := svc.CreateDepartment(context.Background(), CreateDepartmentInput{Name: "Other", Code: "ENG"})
	if !errors.Is(err, ErrCodeAlreadyExists) {
		t.Fatalf("expected ErrCodeAlreadyExists, got %v", err)
	}
}

func TestService_CreateDepartment_UnknownParent(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService()
	missing := "missing"
	_, err := svc.CreateDepartment(context.Background(), CreateDepartmentInput{Name: "Ops", Code: "ops", ParentDepartmentID: &missing})
	if !errors.Is(err, ErrDepartmentNotFound) {
		t.Fatalf("expected ErrDepartmentNotFound, got %v", err)
	}
	if len(repo.departments) != 0 {
		t.Fatalf("nothing must be saved")
	}
}

func TestService_AssignParent_RejectsCycle(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService()
	root := mustCreate(t, svc, "root", nil)
	child := mustCreate(t, svc, "child", &root.ID)
	grandchild := mustCreate(t, svc, "grandchild", &child.ID)

	_, err := svc.AssignParent(context.Background(), root.ID, grandchild.ID)
	if !errors.Is(err, ErrHierarchyCycle) {
		t.Fatalf("expected ErrHierarchyCycle, got %v", err)
	}
	if !validation.IsValidation(err) {
		t.Fatalf("cycle must be a validation error")
	}
	if repo.departments[root.ID].ParentDepartmentID != nil {
		t.Fatalf("root must stay a root")
	}
}

func TestService_AssignParent_RejectedCallLeavesStoredDepartment(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService()
	root := mustCreate(t, svc, "root", nil)
	child := mustCreate(t, svc, "child", &root.ID)
	repo.shared = true

	if _, err := svc.AssignParent(context.Background(), root.ID, child.ID); !errors.Is(err, ErrHierarchyCycle) {
		t.Fatalf("expected ErrHierarchyCycle, got %v", err)
	}
	if _, err := svc.AssignParent(context.Background(), root.ID, "missing"); !errors.Is(err, ErrDepartmentNotFound) {
		t.Fatalf("expected ErrDepartmentNotFound, got %v", err)
	}
	if repo.departments[root.ID].ParentDepartmentID != nil {
		t.Fatalf("rejected assignment must not touch the department, got parent %s", *repo.departments[root.ID].ParentDepartmentID)
	}
}

func TestService_AssignParent_MovesSubtree(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	a := mustCreate(t, svc, "a", nil)
	b := mustCreate(t, svc, "b", nil)
	c := mustCreate(t, svc, "c", &a.ID)

	moved, err := svc.AssignParent(context.Background(), c.ID, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *moved.ParentDepartmentID != b.ID {
		t.Fatalf("expected parent %s, got %s", b.ID, *moved.ParentDepartmentID)
	}

	if _, err := svc.AssignParent(context.Background(), c.ID, c.ID); !validation.IsValidation(err) {
		t.Fatalf("expected validation error for self parent, got %v", err)
	}
}

func TestService_UpdateDepartment_CodeConflict(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	mustCreate(t, svc, "eng", nil)
	ops := mustCreate(t, svc, "ops", nil)

	code := "eng"
	if _, err := svc.UpdateDepartment(context.Background(), ops.ID, Patch{Code: &code}); !errors.Is(err, ErrCodeAlreadyExists) {
		t.Fatalf("expected ErrCodeAlreadyExists, got %v", err)
	}

	name := "Operations"
	updated, err := svc.UpdateDepartment(context.Background(), ops.ID, Patch{Name: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Operations" || updated.Code != "ops" {
		t.Fatalf("unexpected department: %+v", updated)
	}
}

func TestService_ListDepartments_Pagination(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	for _, code := range []string{"a", "b", "c"} {
		mustCreate(t, svc, code, nil)
	}

	first, err := svc.ListDepartments(context.Background(), ListDepartmentsInput{PageSize: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Departments) != 2 || first.NextPageToken != "2" {
		t.Fatalf("unexpected first page: %d %q", len(first.Departments), first.NextPageToken)
	}

	second, err := svc.ListDepartments(context.Background(), ListDepartmentsInput{PageSize: 2, PageToken: first.NextPageToken})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Departments) != 1 || second.NextPageToken != "" {
		t.Fatalf("unexpected second page: %d %q", len(second.Departments), second.NextPageToken)
	}

	if _, err := svc.ListDepartments(context.Background(), ListDepartmentsInput{PageSize: maxListPageSize + 1}); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	if _, err := svc.ListDepartments(context.Background(), ListDepartmentsInput{PageToken: "-1"}); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestService_DeactivateIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	d := mustCreate(t, svc, "eng", nil)
	for i := 0; i < 2; i++ {
		got, err := svc.Deactivate(context.Background(), d.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.IsActive {
			t.Fatalf("expected inactive")
		}
	}
}
