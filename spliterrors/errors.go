package spliterrors

import "errors"

var (
	ErrNoStatementsFound = errors.New("no INSERT statements found in file")

	ErrInputIsTerminal = errors.New("input is a terminal; pipe or redirect the migration file")

	ErrInvalidPartCount = errors.New("part count must be at least 1")

	ErrEmptyPrefix = errors.New("output prefix cannot be empty")

	ErrVerifyMismatch = errors.New("written parts do not reproduce the original statements")
)
