package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNumberOfChunks(t *testing.T) {
	tests := []struct {
		name     string
		notional string
		chunk    string
		max      int
		want     int
		wantOK   bool
	}{
		{"just over three chunks", "9060", "3000", 50, 4, true},
		{"exact multiple", "9000", "3000", 50, 3, true},
		{"below one chunk", "300", "3000", 50, 0, false},
		{"exactly one chunk", "3000", "3000", 50, 0, false},
		{"at the maximum", "150000", "3000", 50, 50, true},
		{"over the maximum", "150001", "3000", 50, 0, false},
		{"zero chunk size", "9060", "0", 50, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := NumberOfChunks(decimal.RequireFromString(tt.notional), decimal.RequireFromString(tt.chunk), tt.max)
			if n != tt.want || ok != tt.wantOK {
				t.Errorf("NumberOfChunks = %d, %v; want %d, %v", n, ok, tt.want, tt.wantOK)
			}
		})
	}
}
