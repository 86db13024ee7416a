package main

import (
	"context"
	"errors"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"lpmanager/pkg/clmm"
	"lpmanager/pkg/pool/whirlpool"
)

var errNoInput = errors.New("one of --liquidity, --amount-a or --amount-b is required")

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("liquidity", "", "liquidity amount")
	cmd.Flags().String("amount-a", "", "token A amount in raw units")
	cmd.Flags().String("amount-b", "", "token B amount in raw units")
	cmd.MarkFlagsMutuallyExclusive("liquidity", "amount-a", "amount-b")
}

// quoteInput reads the input flags. ok is false when none is set.
func quoteInput(cmd *cobra.Command) (input whirlpool.QuoteInput, ok bool, err error) {
	for _, f := range []struct {
		name string
		make func(cosmath.Int) whirlpool.QuoteInput
	}{
		{"liquidity", whirlpool.ByLiquidity},
		{"amount-a", whirlpool.ByTokenA},
		{"amount-b", whirlpool.ByTokenB},
	} {
		raw, _ := cmd.Flags().GetString(f.name)
		if raw == "" {
			continue
		}
		amount, valid := cosmath.NewIntFromString(raw)
		if !valid || amount.IsNegative() {
			return input, false, fmt.Errorf("invalid --%s %q", f.name, raw)
		}
		return f.make(amount), true, nil
	}
	return input, false, nil
}

func requireQuoteInput(cmd *cobra.Command) (whirlpool.QuoteInput, error) {
	input, ok, err := quoteInput(cmd)
	if err != nil {
		return input, err
	}
	if !ok {
		return input, errNoInput
	}
	return input, nil
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "whirlpool address")
	cmd.Flags().Int32("tick-lower", 0, "lower tick index")
	cmd.Flags().Int32("tick-upper", 0, "upper tick index")
	cmd.Flags().String("price-lower", "", "lower price, token B per token A")
	cmd.Flags().String("price-upper", "", "upper price, token B per token A")
	cmd.Flags().Bool("full-range", false, "use the widest range the tick spacing allows")
	_ = cmd.MarkFlagRequired("pool")
	cmd.MarkFlagsRequiredTogether("price-lower", "price-upper")
	cmd.MarkFlagsMutuallyExclusive("tick-lower", "price-lower", "full-range")
	cmd.MarkFlagsMutuallyExclusive("tick-upper", "price-upper", "full-range")
}

// tickRange resolves the range flags against pool. Prices snap to the nearest
// initializable tick and need the real mint decimals.
func tickRange(ctx context.Context, cmd *cobra.Command, chain mintDecimalsFetcher, pool *whirlpool.Whirlpool) (int32, int32, error) {
	if full, _ := cmd.Flags().GetBool("full-range"); full {
		lower, upper := clmm.FullRangeTicks(pool.TickSpacing)
		return lower, upper, nil
	}

	priceLower, _ := cmd.Flags().GetString("price-lower")
	priceUpper, _ := cmd.Flags().GetString("price-upper")
	if priceLower == "" {
		lower, _ := cmd.Flags().GetInt32("tick-lower")
		upper, _ := cmd.Flags().GetInt32("tick-upper")
		return lower, upper, nil
	}

	lo, err := decimal.NewFromString(priceLower)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --price-lower: %w", err)
	}
	hi, err := decimal.NewFromString(priceUpper)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --price-upper: %w", err)
	}
	decA, decB, err := poolDecimals(ctx, chain, pool)
	if err != nil {
		return 0, 0, fmt.Errorf("price range: %w", err)
	}
	lower, err := clmm.PriceToTickIndex(lo, decA, decB, pool.TickSpacing)
	if err != nil {
		return 0, 0, err
	}
	upper, err := clmm.PriceToTickIndex(hi, decA, decB, pool.TickSpacing)
	if err != nil {
		return 0, 0, err
	}
	return lower, upper, nil
}
