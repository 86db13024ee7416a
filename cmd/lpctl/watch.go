package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"lpmanager/pkg/clmm"
	"lpmanager/pkg/pool/whirlpool"
	"lpmanager/pkg/subscription"
)

type priceUpdate struct {
	Slot      uint64 `json:"slot"`
	Tick      int32  `json:"tickCurrentIndex"`
	SqrtPrice string `json:"sqrtPrice"`
	Price     string `json:"price"`
	Liquidity string `json:"liquidity"`
	InRange   *bool  `json:"inRange,omitempty"`
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <pool>",
		Short: "Stream a pool's price, optionally tracking whether a position is in range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, appOptions{websocket: true})
			if err != nil {
				return err
			}
			defer a.close()

			poolAddr, err := parsePubkey("pool", args[0])
			if err != nil {
				return err
			}
			pool, err := a.chain.FetchPool(a.ctx, poolAddr)
			if err != nil {
				return err
			}

			var position *whirlpool.Position
			if raw, _ := cmd.Flags().GetString("position"); raw != "" {
				mint, err := parsePubkey("position mint", raw)
				if err != nil {
					return err
				}
				if position, err = a.chain.FetchPosition(a.ctx, mint); err != nil {
					return err
				}
			}

			decA, decB := a.decimals(pool)
			updates := make(chan priceUpdate, 16)
			watcher := subscription.NewSubscriptionManager(a.ws, a.cfg.Commitment, a.logger)
			defer watcher.Close()

			err = watcher.WatchPool(poolAddr, func(p *whirlpool.Whirlpool, slot uint64) {
				u := priceUpdate{
					Slot:      slot,
					Tick:      p.TickCurrentIndex,
					SqrtPrice: p.SqrtPrice.String(),
					Price:     clmm.PriceFromSqrtPrice(p.SqrtPrice, decA, decB).StringFixed(int32(decB) + 6),
					Liquidity: p.Liquidity.String(),
				}
				if position != nil {
					in := position.InRange(p)
					u.InRange = &in
				}
				select {
				case updates <- u:
				default:
					a.logger.Warn("dropping price update", zap.Uint64("slot", slot))
				}
			})
			if err != nil {
				return err
			}

			for {
				select {
				case <-a.ctx.Done():
					return nil
				case u := <-updates:
					if err := printJSON(u); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().String("position", "", "position mint to report in-range status for")
	return cmd
}
