// Package department は部署の階層構造を扱います。
package department

import (
	"regexp"
	"strings"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	entityDepartment = "department"

	maxNameLength        = 100
	maxCodeLength        = 20
	maxDescriptionLength = 500
)

const (
	EventDepartmentCreated         = "DepartmentCreatedEvent"
	EventDepartmentUpdated         = "DepartmentUpdatedEvent"
	EventDepartmentParentAssigned  = "DepartmentParentAssignedEvent"
	EventDepartmentParentRemoved   = "DepartmentParentRemovedEvent"
	EventDepartmentManagerAssigned = "DepartmentManagerAssignedEvent"
	EventDepartmentManagerRemoved  = "DepartmentManagerRemovedEvent"
	EventDepartmentActivated       = "DepartmentActivatedEvent"
	EventDepartmentDeactivated     = "DepartmentDeactivatedEvent"
)

var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Department は部署エンティティです。ParentDepartmentID により木構造を作ります。
type Department struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Code               string  `json:"code"`
	Description        *string `json:"description,omitempty"`
	ParentDepartmentID *string `json:"parent_department_id,omitempty"`
	ManagerID          *string `json:"manager_id,omitempty"`
	IsActive           bool    `json:"is_active"`
	shared.AuditInfo   `json:"-"`
}

// Params は部署の生成パラメータです。
type Params struct {
	ID                 string
	Name               string
	Code               string
	Description        *string
	ParentDepartmentID *string
	ManagerID          *string
}

// Patch は部署の部分更新です。
type Patch struct {
	Name        *string
	Code        *string
	Description *string
}

// New は有効な部署を生成します。
func New(p Params, sink event.Sink) (*Department, error) {
	id, err := validation.RequireID("id", p.ID)
	if err != nil {
		return nil, validation.WithEntity(entityDepartment, err)
	}
	name, err := validation.RequireNonEmpty("name", p.Name, maxNameLength)
	if err != nil {
		return nil, validation.WithEntity(entityDepartment, err)
	}
	code, err := normalizeCode(p.Code)
	if err != nil {
		return nil, err
	}
	description, err := validation.RequireMaxLength("description", p.Description, maxDescriptionLength)
	if err != nil {
		return nil, validation.WithEntity(entityDepartment, err)
	}

	d := &Department{
		ID:          id,
		Name:        name,
		Code:        code,
		Description: description,
		IsActive:    true,
	}
	if p.ParentDepartmentID != nil {
		parent, err := d.validateReference("parent_department_id", *p.ParentDepartmentID)
		if err != nil {
			return nil, err
		}
		d.ParentDepartmentID = &parent
	}
	if p.ManagerID != nil {
		manager, err := d.validateReference("manager_id", *p.ManagerID)
		if err != nil {
			return nil, err
		}
		d.ManagerID = &manager
	}

	d.record(sink, EventDepartmentCreated)
	return d, nil
}

func (d *Department) record(sink event.Sink, name string) {
	sink.Record(event.New(name, entityDepartment, d.ID, *d))
}

// validateReference は空でなく自分自身を指さない ID であることを検証します。
func (d *Department) validateReference(field, id string) (string, error) {
	ref, err := validation.RequireID(field, id)
	if err != nil {
		return "", validation.WithEntity(entityDepartment, err)
	}
	if ref == d.ID {
		return "", validation.Invalid(entityDepartment, field, "must not reference the department itself")
	}
	return ref, nil
}

// AssignParentDepartment は親部署を設定します。自分自身は常に拒否します。
// より深い循環の検出は Service.EnsureNoCycle が担います。
func (d *Department) AssignParentDepartment(parentID string, sink event.Sink) error {
	parent, err := d.validateReference("parent_department_id", parentID)
	if err != nil {
		return err
	}
	if d.ParentDepartmentID != nil && *d.ParentDepartmentID == parent {
		return nil
	}
	d.ParentDepartmentID = &parent
	d.record(sink, EventDepartmentParentAssigned)
	return nil
}

// RemoveParentDepartment は親部署を外し、ルート部署にします。
func (d *Department) RemoveParentDepartment(sink event.Sink) {
	if d.ParentDepartmentID == nil {
		return
	}
	d.ParentDepartmentID = nil
	d.record(sink, EventDepartmentParentRemoved)
}

// AssignManager は部署の責任者を設定します。
func (d *Department) AssignManager(managerID string, sink event.Sink) error {
	manager, err := d.validateReference("manager_id", managerID)
	if err != nil {
		return err
	}
	if d.ManagerID != nil && *d.ManagerID == manager {
		return nil
	}
	d.ManagerID = &manager
	d.record(sink, EventDepartmentManagerAssigned)
	return nil
}

// RemoveManager は部署の責任者を外します。
func (d *Department) RemoveManager(sink event.Sink) {
	if d.ManagerID == nil {
		return
	}
	d.ManagerID = nil
	d.record(sink, EventDepartmentManagerRemoved)
}

// UpdateDetails は名称・コード・説明を部分更新します。
func (d *Department) UpdateDetails(p Patch, sink event.Sink) (bool, error) {
	name := d.Name
	code := d.Code
	description := d.Description

	if p.Name != nil {
		v, err := validation.RequireNonEmpty("name", *p.Name, maxNameLength)
		if err != nil {
			return false, validation.WithEntity(entityDepartment, err)
		}
		name = v
	}
	if p.Code != nil {
		v, err := normalizeCode(*p.Code)
		if err != nil {
			return false, err
		}
		code = v
	}
	if p.Description != nil {
		v, err := validation.RequireMaxLength("description", p.Description, maxDescriptionLength)
		if err != nil {
			return false, validation.WithEntity(entityDepartment, err)
		}
		description = v
	}

	if name == d.Name && code == d.Code && shared.EqualString(description, d.Description) {
		return false, nil
	}
	d.Name = name
	d.Code = code
	d.Description = description
	d.record(sink, EventDepartmentUpdated)
	return true, nil
}

// Deactivate は部署を無効にします。
func (d *Department) Deactivate(sink event.Sink) {
	if !d.IsActive {
		return
	}
	d.IsActive = false
	d.record(sink, EventDepartmentDeactivated)
}

// Activate は部署を有効にします。
func (d *Department) Activate(sink event.Sink) {
	if d.IsActive {
		return
	}
	d.IsActive = true
	d.record(sink, EventDepartmentActivated)
}

func normalizeCode(raw string) (string, error) {
	trimmed, err := validation.RequireNonEmpty("code", raw, maxCodeLength)
	if err != nil {
		return "", validation.WithEntity(entityDepartment, err)
	}
	lower := strings.ToLower(trimmed)
	if !codePattern.MatchString(lower) {
		return "", validation.Invalid(entityDepartment, "code", "must contain only lowercase letters, digits, '-' or '_'")
	}
	return lower, nil
}
