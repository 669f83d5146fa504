package service

import "errors"

var (
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrOrganizationNotFound   = errors.New("organization not found")
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrCustomerMismatch       = errors.New("customer does not belong to organization")
	ErrDuplicateInvoiceNumber = errors.New("invoice number already exists for organization")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInvalidPeriod          = errors.New("end date must not be before start date")
	ErrArchiveEntryNotFound   = errors.New("archive entry not found")
)

// ErrInvalidInput wraps request values the validator cannot catch, such as
// inconsistent date ranges.
var ErrInvalidInput = errors.New("invalid input")
