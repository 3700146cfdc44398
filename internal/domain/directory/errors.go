package directory

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrPeriodNotFound   = errors.New("assessment period not found")
	ErrPeriodInvalid    = errors.New("assessment period is invalid")
)
