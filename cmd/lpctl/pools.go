package main

import (
	"github.com/spf13/cobra"
	"lpmanager/pkg/lifecycle"
)

func newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "List whirlpools for a token pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			mintA, _ := cmd.Flags().GetString("mint-a")
			mintB, _ := cmd.Flags().GetString("mint-b")
			pools, err := a.chain.FetchPoolsByPair(a.ctx, mintA, mintB)
			if err != nil {
				return err
			}

			views := make([]lifecycle.PoolView, 0, len(pools))
			for _, pool := range pools {
				decA, decB := a.decimals(pool)
				views = append(views, lifecycle.NewPoolView(pool, decA, decB))
			}
			return printJSON(views)
		},
	}
	cmd.Flags().String("mint-a", "", "first token mint")
	cmd.Flags().String("mint-b", "", "second token mint")
	_ = cmd.MarkFlagRequired("mint-a")
	_ = cmd.MarkFlagRequired("mint-b")
	return cmd
}

func newPositionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "position <position-mint>",
		Short: "Show a position with its fees and rewards owed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			mint, err := parsePubkey("position mint", args[0])
			if err != nil {
				return err
			}
			state, err := a.chain.FetchPositionState(a.ctx, mint)
			if err != nil {
				return err
			}
			fees, err := a.manager.QuotePositionFees(a.ctx, mint)
			if err != nil {
				return err
			}
			decA, decB := a.decimals(state.Pool)
			return printJSON(lifecycle.NewPositionView(state, fees, decA, decB))
		},
	}
}
