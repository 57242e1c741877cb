package attendance

import "errors"

var (
	ErrAttendanceNotFound      = errors.New("attendance: not found")
	ErrAttendanceAlreadyExists = errors.New("attendance: record already exists for employee and date")
)
