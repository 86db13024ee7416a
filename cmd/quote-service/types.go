package main

import (
	"time"

	"lpmanager/pkg/lifecycle"
)

type QuoteResponse struct {
	PositionMint string              `json:"positionMint,omitempty"`
	Pool         string              `json:"pool,omitempty"`
	TickLower    *int32              `json:"tickLowerIndex,omitempty"`
	TickUpper    *int32              `json:"tickUpperIndex,omitempty"`
	Quote        lifecycle.QuoteView `json:"quote"`
	TimeTaken    string              `json:"timeTaken"`
}

type FeesResponse struct {
	PositionMint string             `json:"positionMint"`
	Fees         lifecycle.FeesView `json:"fees"`
	TimeTaken    string             `json:"timeTaken"`
}

type QuoteError struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	LastQuote time.Time `json:"lastQuote"`
	Quotes    uint64    `json:"quotes"`
	Uptime    string    `json:"uptime"`
}
