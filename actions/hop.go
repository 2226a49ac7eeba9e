package actions

import "net/url"

// HopContext is the continuation threaded through follow-up links. It is the
// only state carried between hops besides ledger records: every hop must be
// resumable from these fields plus a fresh resource fetch.
type HopContext struct {
	// Signature is the proof produced during verification. Downstream hops
	// treat its presence as proof of possession; they do not re-verify.
	Signature string
	// TxID is a ledger-issued transaction id, set once the ledger has
	// prepared a real value movement.
	TxID string
	// Description optionally overrides the human-facing copy on the next hop.
	Description string
}

// HopFromQuery extracts the hop context from a follow-up link's query.
func HopFromQuery(q url.Values) HopContext {
	return HopContext{
		Signature:   q.Get("signature"),
		TxID:        q.Get("tx"),
		Description: q.Get("description"),
	}
}

// Query encodes the non-empty hop fields for embedding in a link.
func (h HopContext) Query() url.Values {
	q := url.Values{}
	if h.Signature != "" {
		q.Set("signature", h.Signature)
	}
	if h.TxID != "" {
		q.Set("tx", h.TxID)
	}
	if h.Description != "" {
		q.Set("description", h.Description)
	}
	return q
}

// RequireSignature validates that the hop carries a signature.
func (h HopContext) RequireSignature() error {
	if h.Signature == "" {
		return Validation("Missing signature parameter")
	}
	return nil
}

// RequireTxID validates that the hop carries a ledger transaction id.
func (h HopContext) RequireTxID() error {
	if h.TxID == "" {
		return Validation("Missing tx parameter")
	}
	return nil
}
