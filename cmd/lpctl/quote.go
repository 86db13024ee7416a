package main

import (
	"github.com/spf13/cobra"
	"lpmanager/pkg/lifecycle"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote liquidity changes without submitting",
	}

	increase := &cobra.Command{
		Use:   "increase <position-mint>",
		Short: "Quote adding liquidity to a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPositionQuote(cmd, args[0], true)
		},
	}
	addInputFlags(increase)

	decrease := &cobra.Command{
		Use:   "decrease <position-mint>",
		Short: "Quote withdrawing liquidity from a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPositionQuote(cmd, args[0], false)
		},
	}
	addInputFlags(decrease)

	open := &cobra.Command{
		Use:   "open",
		Short: "Quote the deposit for a new position",
		RunE:  runOpenQuote,
	}
	addRangeFlags(open)
	addInputFlags(open)

	cmd.AddCommand(increase, decrease, open)
	return cmd
}

func runPositionQuote(cmd *cobra.Command, mintArg string, increase bool) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	mint, err := parsePubkey("position mint", mintArg)
	if err != nil {
		return err
	}
	input, err := requireQuoteInput(cmd)
	if err != nil {
		return err
	}

	quote := a.manager.QuoteDecrease
	if increase {
		quote = a.manager.QuoteIncrease
	}
	q, err := quote(a.ctx, mint, input, lifecycle.DefaultSlippage)
	if err != nil {
		return err
	}
	return printJSON(lifecycle.NewQuoteView(q))
}

func runOpenQuote(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	poolArg, _ := cmd.Flags().GetString("pool")
	poolAddr, err := parsePubkey("pool", poolArg)
	if err != nil {
		return err
	}
	input, err := requireQuoteInput(cmd)
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

	q, err := a.manager.QuoteOpen(a.ctx, poolAddr, lower, upper, input, lifecycle.DefaultSlippage)
	if err != nil {
		return err
	}
	return printJSON(struct {
		TickLower int32               `json:"tickLowerIndex"`
		TickUpper int32               `json:"tickUpperIndex"`
		Quote     lifecycle.QuoteView `json:"quote"`
	}{lower, upper, lifecycle.NewQuoteView(q)})
}
