package compensation

const (
	EventSalaryCreated       = "SalaryCreatedEvent"
	EventSalaryUpdated       = "SalaryUpdatedEvent"
	EventSalaryTerminated    = "SalaryTerminatedEvent"
	EventAllowanceAdded      = "AllowanceAddedEvent"
	EventAllowanceRemoved    = "AllowanceRemovedEvent"
	EventAllowanceUpdated    = "AllowanceUpdatedEvent"
	EventAllowanceTerminated = "AllowanceTerminatedEvent"
	EventDeductionAdded      = "DeductionAddedEvent"
	EventDeductionRemoved    = "DeductionRemovedEvent"
	EventDeductionUpdated    = "DeductionUpdatedEvent"
	EventDeductionTerminated = "DeductionTerminatedEvent"
)

const (
	entitySalary    = "salary"
	entityAllowance = "allowance"
	entityDeduction = "deduction"
)
