package domain

import (
	"github.com/shopspring/decimal"
)

// NumberOfChunks returns ceil(notional / chunkSize) when the trade is worth
// splitting: more than one chunk and no more than maxChunks.
func NumberOfChunks(notional, chunkSize decimal.Decimal, maxChunks int) (int, bool) {
	if !chunkSize.IsPositive() || notional.LessThanOrEqual(chunkSize) {
		return 0, false
	}
	n := notional.Div(chunkSize).Ceil()
	if n.GreaterThan(decimal.NewFromInt(int64(maxChunks))) {
		return 0, false
	}
	return int(n.IntPart()), true
}
