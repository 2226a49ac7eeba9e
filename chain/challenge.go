package chain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Purpose tags what a signature or binding memo is for. It varies the memo
// noun on binding transactions.
type Purpose string

const (
	PurposeTask    Purpose = "Task"
	PurposeService Purpose = "Service"
)

// BuildChallenge returns the message an account must sign to prove control
// of its key. Deterministic: identical inputs always produce identical text,
// so verification recomputes it instead of looking anything up.
//
// The purpose tag does not currently vary the text, which means a signature
// produced for one purpose also verifies for another under the same account.
func BuildChallenge(account solana.PublicKey, purpose Purpose) string {
	_ = purpose
	return fmt.Sprintf("Please sign this message to verify your identity: %s", account)
}

// VerifyChallengeSignature reports whether sig is a valid signature by
// account over the challenge for the given purpose. Pure function, no
// network access.
func VerifyChallengeSignature(account solana.PublicKey, sig solana.Signature, purpose Purpose) bool {
	return sig.Verify(account, []byte(BuildChallenge(account, purpose)))
}
