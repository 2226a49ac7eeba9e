package ledger

// SubmissionStatus is the lifecycle of a work submission as recorded by the
// escrow ledger. The ledger owns all transitions; this service only reads them.
type SubmissionStatus string

const (
	SubmissionOpen         SubmissionStatus = "OPEN"
	SubmissionWaitingClaim SubmissionStatus = "WAITING_CLAIM"
	SubmissionClaimed      SubmissionStatus = "CLAIMED"
	SubmissionClosed       SubmissionStatus = "CLOSED"
)

// Asset describes the reward attached to a resource.
type Asset struct {
	Mint     string `json:"mint"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	Amount   uint64 `json:"amount"`
}

// Submission is one account's claim of work against a resource.
type Submission struct {
	ID      string           `json:"id"`
	Account string           `json:"account"`
	Status  SubmissionStatus `json:"status"`
	Asset   Asset            `json:"asset"`
}

// Resource is a task or service record. It is immutable within a request;
// the authoritative copy lives in the ledger and is re-fetched on every hop.
type Resource struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Open           bool         `json:"is_open"`
	Owner          string       `json:"owner"`
	Asset          Asset        `json:"asset"`
	ActionsEnabled bool         `json:"actions_enabled"`
	Submissions    []Submission `json:"submissions"`
}

// SubmissionFor returns the caller's live submission, or nil. A CLOSED
// submission does not count; the ledger keeps it only for history.
func (r *Resource) SubmissionFor(account string) *Submission {
	for i := range r.Submissions {
		s := &r.Submissions[i]
		if s.Account == account && s.Status != SubmissionClosed {
			return s
		}
	}
	return nil
}

// PreparedTransaction is an unsigned transaction built by the ledger for a
// real value movement (claim payout or service payment), plus the ledger's
// own id for tracking it across hops.
type PreparedTransaction struct {
	Transaction string `json:"transaction"`
	TxID        string `json:"tx_id"`
}

// Receipt is the ledger's answer to a completion call. The ledger is the
// authority on duplicates: re-completing an already settled claim returns a
// receipt with AlreadySettled set instead of an error.
type Receipt struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	RedirectURL    string `json:"redirect_url,omitempty"`
	AlreadySettled bool   `json:"already_settled,omitempty"`
}
