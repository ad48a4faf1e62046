package lifecycle

import (
	"fmt"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// SchemaError rejects a submission whose parameters fail validation.
// The error names the offending field so generators can be fixed at the
// source instead of silently producing junk.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid candidate: %s: %s", e.Field, e.Reason)
}

// DuplicateError reports a content-hash collision with an existing
// candidate. Duplicates at submission are rejected loudly, unlike
// inside the generator where they are dropped silently. The existing
// candidate's ID and status ride along so the caller can decide whether
// the collision is a no-op (already validated) or worth surfacing.
type DuplicateError struct {
	Hash       string
	ExistingID int64
	Status     contracts.CandidateStatus
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate candidate: hash %s already registered as id %d (%s)",
		e.Hash, e.ExistingID, e.Status)
}
