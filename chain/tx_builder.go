package chain

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// bindingLamports is the self-transfer amount on binding transactions: one
// unit of the base denomination, enough to make the transaction valid and
// nothing more.
const bindingLamports = 1

var memoProgramID = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

// TxBuilder constructs unsigned binding transactions: a minimal self
// transfer plus a memo tying the payer account to a resource. Every build
// fetches a fresh anchor, so two builds with identical inputs serialize
// differently while carrying the same memo.
type TxBuilder struct {
	anchors AnchorSource
}

// NewTxBuilder builds a transaction builder over the given anchor source.
func NewTxBuilder(anchors AnchorSource) *TxBuilder {
	return &TxBuilder{anchors: anchors}
}

// BindingMemo is the memo text that ties an account to a resource.
func BindingMemo(payer solana.PublicKey, resourceID string, purpose Purpose) string {
	return fmt.Sprintf("User %s %s %s", payer, purpose, resourceID)
}

// BuildBindingTransaction returns the base64 serialization of an unsigned
// transaction binding payer to the resource. Anchor fetch failures get one
// bounded retry; a second failure is returned to the caller as retryable.
func (b *TxBuilder) BuildBindingTransaction(ctx context.Context, payer solana.PublicKey, resourceID string, purpose Purpose) (string, error) {
	anchor, err := b.latestAnchor(ctx)
	if err != nil {
		return "", err
	}

	memo := BindingMemo(payer, resourceID, purpose)
	instructions := []solana.Instruction{
		system.NewTransferInstruction(bindingLamports, payer, payer).Build(),
		solana.NewInstruction(
			memoProgramID,
			solana.AccountMetaSlice{solana.NewAccountMeta(payer, false, true)},
			[]byte(memo),
		),
	}

	tx, err := solana.NewTransaction(instructions, anchor, solana.TransactionPayer(payer))
	if err != nil {
		return "", fmt.Errorf("assemble transaction: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (b *TxBuilder) latestAnchor(ctx context.Context) (solana.Hash, error) {
	anchor, err := b.anchors.LatestBlockhash(ctx)
	if err == nil {
		return anchor, nil
	}

	select {
	case <-ctx.Done():
		return solana.Hash{}, ctx.Err()
	case <-time.After(200 * time.Millisecond):
	}

	anchor, retryErr := b.anchors.LatestBlockhash(ctx)
	if retryErr != nil {
		return solana.Hash{}, fmt.Errorf("anchor unavailable: %w", retryErr)
	}
	return anchor, nil
}
