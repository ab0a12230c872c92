package domain

import (
	"math/big"
	"testing"

	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
)

func mustLeg(t *testing.T, from, to asset.InternalAsset) *Leg {
	t.Helper()
	leg, err := NewLeg(from, to, big.NewInt(1000))
	if err != nil {
		t.Fatal(err)
	}
	return leg
}

func TestParseOrders(t *testing.T) {
	legs := []*Leg{mustLeg(t, asset.Btc, asset.Usdc), mustLeg(t, asset.Usdc, asset.Eth)}

	tests := []struct {
		name    string
		resp    QuoteResponse
		want    int
		wantErr bool
	}{
		{
			name: "orders on both legs",
			resp: QuoteResponse{Legs: [][]WireOrder{
				{{Tick: -100, Amount: "500"}, {Tick: -90, Amount: "250"}},
				{{Tick: 42, Amount: "7"}},
			}},
			want: 3,
		},
		{
			name: "zero amounts are dropped",
			resp: QuoteResponse{Legs: [][]WireOrder{{{Tick: 1, Amount: "0"}}, {}}},
			want: 0,
		},
		{name: "leg count mismatch", resp: QuoteResponse{Legs: [][]WireOrder{{}}}, wantErr: true},
		{
			name:    "tick out of range",
			resp:    QuoteResponse{Legs: [][]WireOrder{{{Tick: MaxTick + 1, Amount: "1"}}, {}}},
			wantErr: true,
		},
		{
			name:    "hex amount rejected",
			resp:    QuoteResponse{Legs: [][]WireOrder{{{Tick: 0, Amount: "0x10"}}, {}}},
			wantErr: true,
		},
		{
			name:    "negative amount",
			resp:    QuoteResponse{Legs: [][]WireOrder{{}, {{Tick: 0, Amount: "-5"}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := ParseOrders("cFmm", legs, &tt.resp)
			if tt.wantErr {
				if apperror.GetCode(err) != apperror.CodeMarketMakerMessage {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(orders) != tt.want {
				t.Fatalf("got %d orders, want %d", len(orders), tt.want)
			}
			for _, o := range orders {
				if o.Base != legs[o.LegIndex].Base() || o.Side != legs[o.LegIndex].Side() {
					t.Errorf("order %+v not aligned with leg %s", o, legs[o.LegIndex])
				}
			}
		})
	}
}

func TestOrder_ShiftTick(t *testing.T) {
	tests := []struct {
		name   string
		order  Order
		factor int32
		want   int32
	}{
		{"sell moves down", Order{Side: SideSell, Tick: 100}, 5, 95},
		{"buy moves up", Order{Side: SideBuy, Tick: 100}, 5, 105},
		{"clamped at max", Order{Side: SideBuy, Tick: MaxTick - 1}, 10, MaxTick},
		{"clamped at min", Order{Side: SideSell, Tick: MinTick + 1}, 10, MinTick},
		{"zero factor", Order{Side: SideSell, Tick: 7}, 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.order.ShiftTick(tt.factor).Tick; got != tt.want {
				t.Errorf("tick = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOrder_Sells(t *testing.T) {
	if got := (Order{Side: SideBuy, Base: asset.Btc}).Sells(); got != asset.Btc {
		t.Errorf("buy leg order sells %s", got)
	}
	if got := (Order{Side: SideSell, Base: asset.Btc}).Sells(); got != asset.Usdc {
		t.Errorf("sell leg order sells %s", got)
	}
}
