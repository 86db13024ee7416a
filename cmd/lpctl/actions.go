package main

import (
	"github.com/spf13/cobra"
	"lpmanager/pkg/lifecycle"
)

func printResult(res *lifecycle.Result, err error) error {
	if res != nil && res.Plan != nil {
		if perr := printJSON(lifecycle.NewResultView(res)); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

func newIncreaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "increase <position-mint>",
		Short: "Add liquidity to a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, appOptions{signer: true})
			if err != nil {
				return err
			}
			defer a.close()

			mint, err := parsePubkey("position mint", args[0])
			if err != nil {
				return err
			}
			input, err := requireQuoteInput(cmd)
			if err != nil {
				return err
			}
			return printResult(a.manager.IncreaseLiquidity(a.ctx, mint, input, lifecycle.DefaultSlippage))
		},
	}
	addInputFlags(cmd)
	return cmd
}

func newDecreaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrease <position-mint>",
		Short: "Withdraw liquidity from a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, appOptions{signer: true})
			if err != nil {
				return err
			}
			defer a.close()

			mint, err := parsePubkey("position mint", args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bps") {
				bps, _ := cmd.Flags().GetUint16("bps")
				return printResult(a.manager.DecreaseLiquidityPercent(a.ctx, mint, bps, lifecycle.DefaultSlippage))
			}
			input, err := requireQuoteInput(cmd)
			if err != nil {
				return err
			}
			return printResult(a.manager.DecreaseLiquidity(a.ctx, mint, input, lifecycle.DefaultSlippage))
		},
	}
	addInputFlags(cmd)
	cmd.Flags().Uint16("bps", 0, "share of the position's liquidity to withdraw in basis points, e.g. 3000 for 30%")
	cmd.MarkFlagsMutuallyExclusive("bps", "liquidity", "amount-a", "amount-b")
	return cmd
}

func newCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <position-mint>",
		Short: "Collect everything, withdraw all liquidity and close a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, appOptions{signer: true})
			if err != nil {
				return err
			}
			defer a.close()

			mint, err := parsePubkey("position mint", args[0])
			if err != nil {
				return err
			}
			return printResult(a.manager.ClosePosition(a.ctx, mint, lifecycle.DefaultSlippage))
		},
	}
}

func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest <position-mint>",
		Short: "Collect fees and rewards of a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, appOptions{signer: true})
			if err != nil {
				return err
			}
			defer a.close()

			mint, err := parsePubkey("position mint", args[0])
			if err != nil {
				return err
			}
			return printResult(a.manager.HarvestPosition(a.ctx, mint))
		},
	}
}

func newOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a position, optionally depositing into it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, appOptions{signer: true})
			if err != nil {
				return err
			}
			defer a.close()

			poolArg, _ := cmd.Flags().GetString("pool")
			poolAddr, err := parsePubkey("pool", poolArg)
			if err != nil {
				return err
			}
			pool, err := a.chain.FetchPool(a.ctx, poolAddr)
			if err != nil {
				return err
			}
			lower, upper, err := tickRange(a.ctx, cmd, a.chain, pool)
			if err != nil {
				return err
			}

			req := lifecycle.OpenRequest{Pool: poolAddr, TickLower: lower, TickUpper: upper, SlippageBps: lifecycle.DefaultSlippage}
			input, ok, err := quoteInput(cmd)
			if err != nil {
				return err
			}
			if ok {
				req.Input = &input
			}
			return printResult(a.manager.OpenPosition(a.ctx, req))
		},
	}
	addRangeFlags(cmd)
	addInputFlags(cmd)
	return cmd
}
