package lineage

import "errors"

var (
	// ErrAlreadyRecorded indicates the agent already has a spawn record.
	ErrAlreadyRecorded = errors.New("lineage: agent already recorded")

	// ErrUnknownParent indicates the parent has no spawn record of its own.
	ErrUnknownParent = errors.New("lineage: unknown parent")

	// ErrSelfParent indicates an agent named itself as parent.
	ErrSelfParent = errors.New("lineage: agent cannot be its own parent")

	// ErrZeroAddress indicates a zero agent address.
	ErrZeroAddress = errors.New("lineage: zero agent address")

	// ErrNotFound indicates no record exists for the deployment or agent.
	ErrNotFound = errors.New("lineage: record not found")

	// ErrInvalidRecord indicates a stored record is malformed.
	ErrInvalidRecord = errors.New("lineage: invalid record data")
)
