package actions

import (
	"testing"

	"bountylink-backend/ledger"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		amount   uint64
		decimals uint8
		want     string
	}{
		{5000000, 6, "5"},
		{5500000, 6, "5.5"},
		{123, 6, "0.000123"},
		{1, 0, "1"},
		{0, 6, "0"},
		{1000001, 6, "1.000001"},
		{25000000000, 9, "25"},
	}

	for _, tc := range cases {
		got := FormatAmount(ledger.Asset{Amount: tc.amount, Decimals: tc.decimals})
		if got != tc.want {
			t.Errorf("FormatAmount(%d, %d): expected %q, got %q", tc.amount, tc.decimals, tc.want, got)
		}
	}
}

func TestFormatReward(t *testing.T) {
	a := ledger.Asset{Amount: 5000000, Decimals: 6, Symbol: "USDC"}
	if got := FormatReward(a); got != "5 USDC" {
		t.Fatalf("expected %q, got %q", "5 USDC", got)
	}
	bare := ledger.Asset{Amount: 42, Decimals: 0}
	if got := FormatReward(bare); got != "42" {
		t.Fatalf("expected %q, got %q", "42", got)
	}
}
