package actions

import (
	"strconv"
	"strings"

	"bountylink-backend/ledger"
)

// FormatAmount renders a raw on-chain amount using the asset's decimals,
// trimming trailing zeros: 5000000 at 6 decimals reads "5", 5500000 reads
// "5.5".
func FormatAmount(a ledger.Asset) string {
	raw := strconv.FormatUint(a.Amount, 10)
	d := int(a.Decimals)
	if d == 0 {
		return raw
	}

	if len(raw) <= d {
		raw = strings.Repeat("0", d-len(raw)+1) + raw
	}
	whole := raw[:len(raw)-d]
	frac := strings.TrimRight(raw[len(raw)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// FormatReward is the "<amount> <symbol>" form used in labels.
func FormatReward(a ledger.Asset) string {
	if a.Symbol == "" {
		return FormatAmount(a)
	}
	return FormatAmount(a) + " " + a.Symbol
}
