package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths <tokenIn> <tokenOut>",
		Short: "List candidate paths between two tokens",
		Args:  cobra.ExactArgs(2),
		RunE:  runPaths,
	}
}

func runPaths(cmd *cobra.Command, args []string) error {
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

	paths, err := s.sor.GetCandidatePaths(tokenIn, tokenOut)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d candidate paths from %s to %s\n", len(paths), tokenIn, tokenOut)
	for i, p := range paths {
		fmt.Fprintf(out, "%2d. %s\n", i+1, p)
	}
	return nil
}
