package actions

import "bountylink-backend/ledger"

// ViewerState is the caller's position in the action state machine. It is
// recomputed from a fresh ledger read on every hop; nothing is held between
// requests.
type ViewerState int

const (
	// Task flow.
	StateUnverified ViewerState = iota
	StateOwner
	StateNoSubmissionOpen
	StateNoSubmissionClosed
	StateSubmissionOpen
	StateSubmissionWaitingClaim
	StateSubmissionClaimedOpen
	StateSubmissionClaimedClosed

	// Service flow.
	StateServiceUnverified
	StateServiceVerified
	StateServicePaid
)

func (s ViewerState) String() string {
	switch s {
	case StateUnverified:
		return "UNVERIFIED"
	case StateOwner:
		return "OWNER"
	case StateNoSubmissionOpen:
		return "NO_SUBMISSION_OPEN"
	case StateNoSubmissionClosed:
		return "NO_SUBMISSION_CLOSED"
	case StateSubmissionOpen:
		return "SUBMISSION_OPEN"
	case StateSubmissionWaitingClaim:
		return "SUBMISSION_WAITING_CLAIM"
	case StateSubmissionClaimedOpen:
		return "SUBMISSION_CLAIMED_OPEN"
	case StateSubmissionClaimedClosed:
		return "SUBMISSION_CLAIMED_CLOSED"
	case StateServiceUnverified:
		return "SERVICE_UNVERIFIED"
	case StateServiceVerified:
		return "SERVICE_VERIFIED"
	case StateServicePaid:
		return "SERVICE_PAID"
	}
	return "UNKNOWN"
}

// ResolveTask computes the caller's state for a task. Owner wins over any
// submission lookup: an owner never sees their own submission flow. A
// CLOSED submission counts as no submission at all.
func ResolveTask(r *ledger.Resource, account string, verified bool) ViewerState {
	if !verified {
		return StateUnverified
	}
	if account == r.Owner {
		return StateOwner
	}

	sub := r.SubmissionFor(account)
	if sub == nil {
		if r.Open {
			return StateNoSubmissionOpen
		}
		return StateNoSubmissionClosed
	}

	switch sub.Status {
	case ledger.SubmissionOpen:
		return StateSubmissionOpen
	case ledger.SubmissionWaitingClaim:
		return StateSubmissionWaitingClaim
	case ledger.SubmissionClaimed:
		if r.Open {
			return StateSubmissionClaimedOpen
		}
		return StateSubmissionClaimedClosed
	}

	if r.Open {
		return StateNoSubmissionOpen
	}
	return StateNoSubmissionClosed
}

// ResolveService computes the caller's state for a service. The service flow
// is a strict subset of the task flow: unverified, verified, paid. A paid
// order is recorded by the ledger as a CLAIMED submission on the service.
func ResolveService(r *ledger.Resource, account string, verified bool) ViewerState {
	if !verified {
		return StateServiceUnverified
	}
	if sub := r.SubmissionFor(account); sub != nil && sub.Status == ledger.SubmissionClaimed {
		return StateServicePaid
	}
	return StateServiceVerified
}
