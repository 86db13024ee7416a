package lifecycle

import (
	"lpmanager/pkg/clmm"
	"lpmanager/pkg/pool/whirlpool"
	"lpmanager/pkg/protocol"
)

// QuoteView is the JSON form of a LiquidityQuote. Amounts are decimal strings
// of raw token units.
type QuoteView struct {
	Liquidity   string `json:"liquidity"`
	TokenEstA   string `json:"tokenEstA"`
	TokenEstB   string `json:"tokenEstB"`
	TokenMinA   string `json:"tokenMinA"`
	TokenMinB   string `json:"tokenMinB"`
	TokenMaxA   string `json:"tokenMaxA"`
	TokenMaxB   string `json:"tokenMaxB"`
	SlippageBps uint16 `json:"slippageBps"`
	Status      string `json:"status"`
}

func NewQuoteView(q whirlpool.LiquidityQuote) QuoteView {
	return QuoteView{
		Liquidity:   q.LiquidityDelta.String(),
		TokenEstA:   q.TokenEstA.String(),
		TokenEstB:   q.TokenEstB.String(),
		TokenMinA:   q.TokenMinA.String(),
		TokenMinB:   q.TokenMinB.String(),
		TokenMaxA:   q.TokenMaxA.String(),
		TokenMaxB:   q.TokenMaxB.String(),
		SlippageBps: q.SlippageBps,
		Status:      q.Status.String(),
	}
}

type RewardView struct {
	Index  uint8  `json:"index"`
	Mint   string `json:"mint"`
	Amount string `json:"amount"`
}

type FeesView struct {
	FeeOwedA string       `json:"feeOwedA"`
	FeeOwedB string       `json:"feeOwedB"`
	Rewards  []RewardView `json:"rewards"`
}

func NewFeesView(f PositionFees) FeesView {
	v := FeesView{
		FeeOwedA: f.Fees.FeeOwedA.String(),
		FeeOwedB: f.Fees.FeeOwedB.String(),
		Rewards:  make([]RewardView, 0, len(f.Rewards.Rewards)),
	}
	for _, r := range f.Rewards.Rewards {
		v.Rewards = append(v.Rewards, RewardView{Index: r.Index, Mint: r.Mint.String(), Amount: r.Amount.String()})
	}
	return v
}

type PoolView struct {
	Address     string `json:"address"`
	TokenMintA  string `json:"tokenMintA"`
	TokenMintB  string `json:"tokenMintB"`
	TickSpacing uint16 `json:"tickSpacing"`
	FeeRate     uint16 `json:"feeRate"`
	Liquidity   string `json:"liquidity"`
	SqrtPrice   string `json:"sqrtPrice"`
	TickCurrent int32  `json:"tickCurrentIndex"`
	// Price is token B per token A in raw units unless decimals are known.
	Price string `json:"price"`
}

func NewPoolView(pool *whirlpool.Whirlpool, decimalsA, decimalsB uint8) PoolView {
	return PoolView{
		Address:     pool.PoolId.String(),
		TokenMintA:  pool.TokenMintA.String(),
		TokenMintB:  pool.TokenMintB.String(),
		TickSpacing: pool.TickSpacing,
		FeeRate:     pool.FeeRate,
		Liquidity:   pool.Liquidity.String(),
		SqrtPrice:   pool.SqrtPrice.String(),
		TickCurrent: pool.TickCurrentIndex,
		Price:       clmm.PriceFromSqrtPrice(pool.SqrtPrice, decimalsA, decimalsB).StringFixed(int32(decimalsB) + 6),
	}
}

type PositionView struct {
	Address      string   `json:"address"`
	PositionMint string   `json:"positionMint"`
	Pool         PoolView `json:"pool"`
	Liquidity    string   `json:"liquidity"`
	TickLower    int32    `json:"tickLowerIndex"`
	TickUpper    int32    `json:"tickUpperIndex"`
	PriceLower   string   `json:"priceLower"`
	PriceUpper   string   `json:"priceUpper"`
	InRange      bool     `json:"inRange"`
	Fees         FeesView `json:"fees"`
}

func NewPositionView(state *protocol.PositionState, fees PositionFees, decimalsA, decimalsB uint8) PositionView {
	p := state.Position
	return PositionView{
		Address:      p.Address.String(),
		PositionMint: p.PositionMint.String(),
		Pool:         NewPoolView(state.Pool, decimalsA, decimalsB),
		Liquidity:    p.Liquidity.String(),
		TickLower:    p.TickLowerIndex,
		TickUpper:    p.TickUpperIndex,
		PriceLower:   tickPrice(p.TickLowerIndex, decimalsA, decimalsB),
		PriceUpper:   tickPrice(p.TickUpperIndex, decimalsA, decimalsB),
		InRange:      p.InRange(state.Pool),
		Fees:         NewFeesView(fees),
	}
}

func tickPrice(tick int32, decimalsA, decimalsB uint8) string {
	price, err := clmm.TickIndexToPrice(tick, decimalsA, decimalsB)
	if err != nil {
		return ""
	}
	return price.StringFixed(int32(decimalsB) + 6)
}

// ResultView is the JSON form of a Result.
type ResultView struct {
	Action       string     `json:"action"`
	Pool         string     `json:"pool"`
	PositionMint string     `json:"positionMint"`
	Steps        []string   `json:"steps"`
	Quote        *QuoteView `json:"quote,omitempty"`
	Signature    string     `json:"signature,omitempty"`
	DryRun       bool       `json:"dryRun"`
}

func NewResultView(res *Result) ResultView {
	v := ResultView{
		Action:       res.Action,
		Pool:         res.Pool.String(),
		PositionMint: res.PositionMint.String(),
		DryRun:       res.DryRun,
	}
	for _, k := range res.Plan.Kinds() {
		v.Steps = append(v.Steps, k.String())
	}
	if res.Quote != nil {
		q := NewQuoteView(*res.Quote)
		v.Quote = &q
	}
	if !res.Signature.IsZero() {
		v.Signature = res.Signature.String()
	}
	return v
}
