package dispatcher

import (
	"strconv"
)

// Outcome classifies a bulk delete.
type Outcome int

const (
	// OutcomeNone means nothing was attempted.
	OutcomeNone Outcome = iota
	OutcomeAllSucceeded
	OutcomePartial
	OutcomeAllFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllSucceeded:
		return "all_succeeded"
	case OutcomePartial:
		return "partial"
	case OutcomeAllFailed:
		return "all_failed"
	}
	return "none"
}

// BulkResult tallies the per-id outcome of a bulk delete.
type BulkResult struct {
	Succeeded []string
	// Failed keeps the failed ids in request order with their error.
	Failed []Failure
}

// Failure is one id that could not be deleted.
type Failure struct {
	ID  string
	Err error
}

// Outcome returns the classification of the result.
func (r BulkResult) Outcome() Outcome {
	switch {
	case len(r.Succeeded) == 0 && len(r.Failed) == 0:
		return OutcomeNone
	case len(r.Failed) == 0:
		return OutcomeAllSucceeded
	case len(r.Succeeded) == 0:
		return OutcomeAllFailed
	}
	return OutcomePartial
}

// Summary returns the text shown to the operator, e.g.
// "2 supprimé(s), 1 échec(s)".
func (r BulkResult) Summary() string {
	ok := strconv.Itoa(len(r.Succeeded)) + " supprimé(s)"
	ko := strconv.Itoa(len(r.Failed)) + " échec(s)"
	switch r.Outcome() {
	case OutcomeAllSucceeded:
		return ok
	case OutcomeAllFailed:
		return ko
	case OutcomePartial:
		return ok + ", " + ko
	}
	return "Aucune suppression."
}

// FailedIDs returns the ids of the failures.
func (r BulkResult) FailedIDs() []string {
	out := make([]string, len(r.Failed))
	for idx := range r.Failed {
		out[idx] = r.Failed[idx].ID
	}
	return out
}
