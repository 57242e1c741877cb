package employee

import (
	"strings"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	MinProficiencyLevel = 1
	MaxProficiencyLevel = 5

	maxSkillNameLength = 100
)

// EmployeeSkill は社員が保有するスキルと習熟度です。
type EmployeeSkill struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ProficiencyLevel int    `json:"proficiency_level"`
}

func validateLevel(level int) error {
	if err := validation.RequireInRange("proficiency_level", level, MinProficiencyLevel, MaxProficiencyLevel); err != nil {
		return validation.WithEntity(entityEmployee, err)
	}
	return nil
}

// AddSkill はスキルを追加します。名前の重複は大文字小文字を区別せず拒否します。
func (e *Employee) AddSkill(skillID, name string, level int, sink event.Sink) error {
	id, err := validation.RequireID("skill_id", skillID)
	if err != nil {
		return validation.WithEntity(entityEmployee, err)
	}
	skillName, err := validation.RequireNonEmpty("skill_name", name, maxSkillNameLength)
	if err != nil {
		return validation.WithEntity(entityEmployee, err)
	}
	if err := validateLevel(level); err != nil {
		return err
	}
	for _, s := range e.Skills {
		if strings.EqualFold(s.Name, skillName) {
			return ErrDuplicateSkill
		}
	}

	e.Skills = append(e.Skills, EmployeeSkill{ID: id, Name: skillName, ProficiencyLevel: level})
	e.record(sink, EventEmployeeSkillAdded)
	return nil
}

// Skill は ID でスキルを返します。
func (e *Employee) Skill(skillID string) (EmployeeSkill, bool) {
	for _, s := range e.Skills {
		if s.ID == skillID {
			return s, true
		}
	}
	return EmployeeSkill{}, false
}

// UpdateSkillProficiency はスキルの習熟度を変更します。
func (e *Employee) UpdateSkillProficiency(skillID string, level int, sink event.Sink) error {
	if err := validateLevel(level); err != nil {
		return err
	}
	for i := range e.Skills {
		if e.Skills[i].ID != skillID {
			continue
		}
		if e.Skills[i].ProficiencyLevel == level {
			return nil
		}
		e.Skills[i].ProficiencyLevel = level
		e.record(sink, EventEmployeeSkillUpdated)
		return nil
	}
	return ErrSkillNotFound
}
