package identity

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"bountylink-backend/actions"
	"bountylink-backend/chain"
)

// SignInFunc is the bridge call the verifier uses on success. Split out so
// tests can observe it without a server.
type SignInFunc func(ctx context.Context, account, signature string) (*Session, error)

// Verifier checks caller-supplied proofs and bridges successes into the
// marketplace identity layer. Failures come back as taxonomy errors, never
// raw ones.
type Verifier struct {
	signIn SignInFunc
}

// NewVerifier builds a verifier over the given bridge.
func NewVerifier(bridge *Bridge) *Verifier {
	return &Verifier{signIn: bridge.SignIn}
}

// NewVerifierFunc builds a verifier over an arbitrary sign-in function.
func NewVerifierFunc(signIn SignInFunc) *Verifier {
	return &Verifier{signIn: signIn}
}

// VerifyMessage checks the signature cryptographically against the
// recomputed challenge for the account, then signs the account in.
func (v *Verifier) VerifyMessage(ctx context.Context, account solana.PublicKey, rawSignature string, purpose chain.Purpose) (*Session, error) {
	sig, err := solana.SignatureFromBase58(rawSignature)
	if err != nil {
		return nil, actions.InvalidSignature()
	}
	if !chain.VerifyChallengeSignature(account, sig, purpose) {
		return nil, actions.InvalidSignature()
	}
	return v.bridge(ctx, account, rawSignature)
}

// VerifyTransaction accepts possession of a non-empty signature value for a
// previously-issued transaction as proof. The transaction is not confirmed
// on chain at this stage; the real payment is verified separately by the
// ledger.
func (v *Verifier) VerifyTransaction(ctx context.Context, account solana.PublicKey, rawSignature string) (*Session, error) {
	if rawSignature == "" {
		return nil, actions.InvalidSignature()
	}
	return v.bridge(ctx, account, rawSignature)
}

func (v *Verifier) bridge(ctx context.Context, account solana.PublicKey, rawSignature string) (*Session, error) {
	session, err := v.signIn(ctx, account.String(), rawSignature)
	if err != nil {
		return nil, actions.NetworkUnavailable(err)
	}
	return session, nil
}
