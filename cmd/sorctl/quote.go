package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/services/swap"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <tokenIn> <tokenOut> <amount>",
		Short: "Find the best route for a swap",
		Long: "Routes amount across candidate paths. amount is in token units of tokenIn for\n" +
			"GivenIn and of tokenOut for GivenOut, e.g. 1.5.",
		Args: cobra.ExactArgs(3),
		RunE: runQuote,
	}
	cmd.Flags().String("kind", "GivenIn", "swap kind: GivenIn or GivenOut")
	cmd.Flags().Bool("raw", false, "amount is in smallest units")
	cmd.Flags().Bool("verify", false, "re-price the route on chain through BalancerQueries (requires --rpc)")
	cmd.Flags().Bool("calldata", false, "print the query call data")
	return cmd
}

func runQuote(cmd *cobra.Command, args []string) error {
	kindFlag, _ := cmd.Flags().GetString("kind")
	raw, _ := cmd.Flags().GetBool("raw")
	verify, _ := cmd.Flags().GetBool("verify")
	printCallData, _ := cmd.Flags().GetBool("calldata")

	kind, err := domain.ParseSwapKind(kindFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	tokenIn, err := s.token(args[0])
	if err != nil {
		return err
	}
	tokenOut, err := s.token(args[1])
	if err != nil {
		return err
	}

	amountToken := tokenIn
	if kind == domain.GivenOut {
		amountToken = tokenOut
	}
	var amount domain.TokenAmount
	if raw {
		amount, err = domain.FromRawString(amountToken, args[2])
	} else {
		amount, err = domain.FromHumanAmount(amountToken, args[2])
	}
	if err != nil {
		return err
	}

	start := time.Now()
	sw, err := s.sor.GetSwapPaths(kind, tokenIn, tokenOut, amount)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if sw == nil {
		fmt.Fprintln(out, "no route found")
		return nil
	}
	took := time.Since(start)

	impact, err := sw.PriceImpact()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "kind\t%s\n", sw.SwapKind())
	fmt.Fprintf(w, "input\t%s\n", sw.InputAmount())
	fmt.Fprintf(w, "output\t%s\n", sw.OutputAmount())
	fmt.Fprintf(w, "price impact\t%s%% (%s)\n", impact.Percentage().StringFixed(2), swap.SeverityOf(impact))
	fmt.Fprintf(w, "routed in\t%s\n", took.Round(time.Microsecond))
	for i, p := range sw.Paths() {
		fmt.Fprintf(w, "path %d\t%s\t%s -> %s\n", i+1, p.Path.String(), p.InputAmount.ToHuman(), p.OutputAmount.ToHuman())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if printCallData {
		to, err := sw.QueriesAddress()
		if err != nil {
			return err
		}
		data, err := sw.QueryCallData()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nto:   %s\ndata: 0x%x\n", to.Hex(), data)
	}

	if verify {
		var block *big.Int
		if s.cfg.Block > 0 {
			block = new(big.Int).SetUint64(s.cfg.Block)
		}
		onChain, err := sw.Query(ctx, s.cfg.RPCURL, block)
		if err != nil {
			return fmt.Errorf("on-chain query: %w", err)
		}
		fmt.Fprintf(out, "\non-chain %s\t%s (off-chain %s)\n", onChainLabel(sw.SwapKind()), onChain, sw.Quote())
	}
	return nil
}

func onChainLabel(kind domain.SwapKind) string {
	if kind == domain.GivenIn {
		return "output"
	}
	return "input"
}
