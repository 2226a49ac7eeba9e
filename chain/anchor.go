package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// AnchorSource supplies the freshness anchor every transaction needs. A new
// anchor is fetched per build; anchors are never reused across requests.
type AnchorSource interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// RPCAnchorSource fetches blockhashes from a chain RPC node at finalized
// commitment.
type RPCAnchorSource struct {
	client *rpc.Client
}

// NewRPCAnchorSource builds an anchor source against the given RPC endpoint.
func NewRPCAnchorSource(endpoint string) *RPCAnchorSource {
	return &RPCAnchorSource{client: rpc.New(endpoint)}
}

// LatestBlockhash returns the most recent finalized blockhash.
func (s *RPCAnchorSource) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("fetch blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}
