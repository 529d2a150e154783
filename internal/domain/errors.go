package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvariantViolation = errors.New("grouping invariant violation")
	ErrEmptyGroup         = errors.New("group would become empty")
	ErrAlreadyAssigned    = errors.New("image already assigned to another group")
	ErrNotConfigured      = errors.New("marketplace not configured")
	ErrCollaborator       = errors.New("collaborator failure")
)
