package rpc

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fd1az/swap-quoter/business/statechain/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/logger"
)

type jsonrpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type handlerFunc func(params []json.RawMessage) (any, *jsonrpcError)

// fakeNode is a minimal JSON-RPC 2.0 server that supports batches.
type fakeNode struct {
	mu       sync.Mutex
	calls    map[string]int
	params   map[string][]json.RawMessage
	handlers map[string]handlerFunc
}

func newFakeNode(t *testing.T, specVersion uint32) (*fakeNode, *httptest.Server) {
	t.Helper()
	n := &fakeNode{
		calls:  make(map[string]int),
		params: make(map[string][]json.RawMessage),
		handlers: map[string]handlerFunc{
			methodRuntimeVersion: func([]json.RawMessage) (any, *jsonrpcError) {
				return map[string]any{"specName": "chainflip-node", "specVersion": specVersion}, nil
			},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	return n, srv
}

func (n *fakeNode) handle(method string, h handlerFunc) {
	n.mu.Lock()
	n.handlers[method] = h
	n.mu.Unlock()
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *fakeNode) lastParams(method string) []json.RawMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.params[method]
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
		var reqs []jsonrpcRequest
		_ = json.Unmarshal(body, &reqs)
		out := make([]map[string]any, 0, len(reqs))
		for _, req := range reqs {
			out = append(out, n.reply(req))
		}
		_ = json.NewEncoder(w).Encode(out)
		return
	}

	var req jsonrpcRequest
	_ = json.Unmarshal(body, &req)
	_ = json.NewEncoder(w).Encode(n.reply(req))
}

func (n *fakeNode) reply(req jsonrpcRequest) map[string]any {
	n.mu.Lock()
	n.calls[req.Method]++
	n.params[req.Method] = req.Params
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = jsonrpcError{Code: -32601, Message: "method not found"}
		return resp
	}
	result, rpcErr := h(req.Params)
	if rpcErr != nil {
		resp["error"] = rpcErr
		return resp
	}
	resp["result"] = result
	return resp
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(context.Background(), Config{
		URL:            url,
		RequestTimeout: 2 * time.Second,
		EnvironmentTTL: time.Minute,
		RuntimeTTL:     time.Minute,
	}, asset.DefaultRegistry(), logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestClient_EnvironmentIsCached(t *testing.T) {
	node, srv := newFakeNode(t, 190)
	node.handle(methodEnvironment, func([]json.RawMessage) (any, *jsonrpcError) {
		return json.RawMessage(`{
			"swapping": {"network_fee_hundredth_pips": 1000},
			"pools": {"fees": {
				"Ethereum": {"ETH": {"limit_order_fee_hundredth_pips": 500}, "USDC": null},
				"Bitcoin": {"BTC": {"limit_order_fee_hundredth_pips": 1500}},
				"Unknown": {"XYZ": {"limit_order_fee_hundredth_pips": 1}}
			}}
		}`), nil
	})

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	for range 3 {
		env, err := c.Environment(ctx)
		if err != nil {
			t.Fatalf("Environment: %v", err)
		}
		if env.NetworkFeeHundredthPips != 1000 {
			t.Errorf("network fee = %d", env.NetworkFeeHundredthPips)
		}
		if fee, ok := env.PoolFee(asset.Btc); !ok || fee != 1500 {
			t.Errorf("Btc pool fee = %d, %v", fee, ok)
		}
		if len(env.PoolFees) != 2 {
			t.Errorf("pool fees = %v", env.PoolFees)
		}
	}

	if got := node.count(methodEnvironment); got != 1 {
		t.Errorf("cf_environment called %d times, want 1", got)
	}
}

func TestClient_SwapRateMethodFollowsRuntime(t *testing.T) {
	tests := []struct {
		name        string
		specVersion uint32
		wantMethod  string
		wantParams  int
	}{
		{"1.8 uses v2", 180, "cf_swap_rate_v2", 4},
		{"1.9 uses v3", 190, "cf_swap_rate_v3", 8},
		{"1.10 still v3", 11000, "cf_swap_rate_v3", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, srv := newFakeNode(t, tt.specVersion)
			result := func([]json.RawMessage) (any, *jsonrpcError) {
				return map[string]any{
					"intermediary": "0x3b9aca00",
					"output":       "0x5f5e100",
					"network_fee":  map[string]any{"chain": "Ethereum", "asset": "USDC", "amount": "1000000"},
				}, nil
			}
			node.handle("cf_swap_rate_v2", result)
			node.handle("cf_swap_rate_v3", result)

			c := newTestClient(t, srv.URL)
			rate, err := c.SwapRate(context.Background(), domain.SwapRateRequest{
				From:   asset.BTC.ChainAsset(),
				To:     asset.ETH.ChainAsset(),
				Amount: big.NewInt(100_000_000),
				AdditionalOrders: []domain.LimitOrder{{
					Base:       asset.BTC.ChainAsset(),
					Quote:      asset.USDC.ChainAsset(),
					Side:       domain.OrderSideBuy,
					Tick:       -1200,
					SellAmount: big.NewInt(5_000_000),
				}},
			})
			if err != nil {
				t.Fatalf("SwapRate: %v", err)
			}

			if node.count(tt.wantMethod) != 1 {
				t.Fatalf("%s not called", tt.wantMethod)
			}
			params := node.lastParams(tt.wantMethod)
			if len(params) != tt.wantParams {
				t.Fatalf("params = %d, want %d", len(params), tt.wantParams)
			}
			if string(params[2]) != `"0x5f5e100"` {
				t.Errorf("amount param = %s", params[2])
			}
			orders := string(params[len(params)-1])
			if !strings.Contains(orders, `"sell_amount":"0x4c4b40"`) || !strings.Contains(orders, `"tick":-1200`) {
				t.Errorf("orders param = %s", orders)
			}

			if !rate.IsRouted() || rate.Intermediary.Int64() != 1_000_000_000 {
				t.Errorf("intermediary = %v", rate.Intermediary)
			}
			if rate.Output.Int64() != 100_000_000 || rate.NetworkFee.Int64() != 1_000_000 {
				t.Errorf("rate = %+v", rate)
			}
		})
	}
}

func TestClient_SwapRateErrors(t *testing.T) {
	t.Run("rpc error reply", func(t *testing.T) {
		node, srv := newFakeNode(t, 190)
		node.handle("cf_swap_rate_v3", func([]json.RawMessage) (any, *jsonrpcError) {
			return nil, &jsonrpcError{Code: -32603, Message: "insufficient liquidity in pool"}
		})

		c := newTestClient(t, srv.URL)
		_, err := c.SwapRate(context.Background(), domain.SwapRateRequest{
			From: asset.ETH.ChainAsset(), To: asset.USDC.ChainAsset(), Amount: big.NewInt(1),
		})
		if code := apperror.GetCode(err); code != apperror.CodeStateChainRPCError {
			t.Errorf("code = %s (%v)", code, err)
		}
	})

	t.Run("node unreachable", func(t *testing.T) {
		_, srv := newFakeNode(t, 190)
		c := newTestClient(t, srv.URL)
		srv.Close()

		_, err := c.SwapRate(context.Background(), domain.SwapRateRequest{
			From: asset.ETH.ChainAsset(), To: asset.USDC.ChainAsset(), Amount: big.NewInt(1),
		})
		if code := apperror.GetCode(err); code != apperror.CodeStateChainConnectionFailed {
			t.Errorf("code = %s (%v)", code, err)
		}
	})

	t.Run("zero amount", func(t *testing.T) {
		_, srv := newFakeNode(t, 190)
		c := newTestClient(t, srv.URL)

		_, err := c.SwapRate(context.Background(), domain.SwapRateRequest{
			From: asset.ETH.ChainAsset(), To: asset.USDC.ChainAsset(), Amount: big.NewInt(0),
		})
		if code := apperror.GetCode(err); code != apperror.CodeInvalidAmount {
			t.Errorf("code = %s", code)
		}
	})
}

func TestClient_FreeBalancesBatch(t *testing.T) {
	node, srv := newFakeNode(t, 190)
	node.handle(methodFreeBalances, func(params []json.RawMessage) (any, *jsonrpcError) {
		var account string
		_ = json.Unmarshal(params[0], &account)
		switch account {
		case "cFmm1":
			return json.RawMessage(`{"Ethereum": {"ETH": "0xde0b6b3a7640000", "USDC": "2500000000"}, "Bitcoin": {"BTC": 150000000}}`), nil
		case "cFmm2":
			return json.RawMessage(`{"Solana": {"SOL": "0x0"}}`), nil
		}
		return nil, &jsonrpcError{Code: -32602, Message: "unknown account"}
	})

	c := newTestClient(t, srv.URL)

	balances, err := c.FreeBalances(context.Background(), []string{"cFmm1", "cFmm2"})
	if err != nil {
		t.Fatalf("FreeBalances: %v", err)
	}
	if got := balances.Get("cFmm1", asset.Eth); got.String() != "1000000000000000000" {
		t.Errorf("cFmm1 Eth = %s", got)
	}
	if got := balances.Get("cFmm1", asset.Usdc); got.Int64() != 2_500_000_000 {
		t.Errorf("cFmm1 Usdc = %s", got)
	}
	if got := balances.Get("cFmm1", asset.Btc); got.Int64() != 150_000_000 {
		t.Errorf("cFmm1 Btc = %s", got)
	}
	if got := balances.Get("cFmm2", asset.Sol); got.Sign() != 0 {
		t.Errorf("cFmm2 Sol = %s", got)
	}
	if node.count(methodFreeBalances) != 2 {
		t.Errorf("batch elements = %d", node.count(methodFreeBalances))
	}

	_, err = c.FreeBalances(context.Background(), []string{"cFmm1", "cFghost"})
	if code := apperror.GetCode(err); code != apperror.CodeBalanceFetchFailed {
		t.Errorf("code = %s (%v)", code, err)
	}
}

func TestU256_Unmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`"0x10"`, "16", false},
		{`"12345678901234567890"`, "12345678901234567890", false},
		{`42`, "42", false},
		{`null`, "0", false},
		{`"-5"`, "", true},
		{`"0xzz"`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var u domain.U256
			err := json.Unmarshal([]byte(tt.in), &u)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if !tt.wantErr && u.Big().String() != tt.want {
				t.Errorf("got %s, want %s", u.Big(), tt.want)
			}
		})
	}
}
