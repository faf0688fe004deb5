package companies

import "errors"

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrCompanyExists   = errors.New("company already exists")
	ErrInvalidRNC      = errors.New("invalid rnc")
)
