package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/pkg/mmclient"
)

// mmSimCmd runs a market maker that answers every request with one flat
// order, for exercising the RFQ path against a local quoter.
func mmSimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mm-sim",
		Short: "Connect a simulated market maker",
		RunE:  runMMSim,
	}
	cmd.Flags().String("url", "ws://localhost:8080/ws/market-maker", "market maker websocket URL")
	cmd.Flags().String("account", "", "market maker account id")
	cmd.Flags().String("key", "", "hex secp256k1 private key")
	cmd.Flags().StringSlice("assets", []string{"Eth", "Btc"}, "internal asset ids to quote")
	cmd.Flags().Int32("tick", 0, "tick of the quoted order")
	cmd.Flags().String("amount", "1000000", "order size in base units")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runMMSim(cmd *cobra.Command, _ []string) error {
	url, _ := cmd.Flags().GetString("url")
	account, _ := cmd.Flags().GetString("account")
	keyHex, _ := cmd.Flags().GetString("key")
	ids, _ := cmd.Flags().GetStringSlice("assets")
	tick, _ := cmd.Flags().GetInt32("tick")
	amount, _ := cmd.Flags().GetString("amount")
	level, _ := cmd.Flags().GetString("log-level")

	if account == "" || keyHex == "" {
		return fmt.Errorf("--account and --key are required")
	}
	raw, err := hexutil.Decode(ensure0x(keyHex))
	if err != nil {
		return fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != secp256k1.PrivKeyBytesLen {
		return fmt.Errorf("key must be %d bytes, got %d", secp256k1.PrivKeyBytesLen, len(raw))
	}

	registry := asset.DefaultRegistry()
	quoted := make([]asset.ChainAsset, 0, len(ids))
	for _, id := range ids {
		a, ok := registry.Get(asset.InternalAsset(id))
		if !ok {
			return fmt.Errorf("unknown asset %q", id)
		}
		quoted = append(quoted, a.ChainAsset())
	}

	log := logger.New(os.Stderr, logger.ParseLevel(level), "mm-sim", nil)
	defer log.Sync()

	client, err := mmclient.New(mmclient.Config{
		URL:          url,
		AccountID:    account,
		PrivateKey:   secp256k1.PrivKeyFromBytes(raw),
		QuotedAssets: quoted,
		Reconnect:    true,
	}, mmclient.Flat(tick, amount), log)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	log.Info(ctx, "market maker connected", "account", account, "assets", ids, "tick", tick)

	<-ctx.Done()
	return nil
}

func ensure0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s
	}
	return "0x" + s
}
