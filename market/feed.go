// Package market feeds live quotes into the paper venue. Simulated
// runs still need a real price series; gold is proxied by Binance's
// PAXGUSDT book ticker.
package market

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"

	"gridbot/logger"
	"gridbot/venue"
)

// QuoteSink receives quote updates (the paper venue implements this)
type QuoteSink interface {
	SetQuote(symbol string, q venue.Quote)
}

// Feed polls one Binance spot symbol and republishes it under the
// venue symbol the engine trades
type Feed struct {
	client        *binance.Client
	binanceSymbol string
	venueSymbol   string
	interval      time.Duration
	sink          QuoteSink
}

// NewFeed creates a book-ticker poller. No API keys needed: the book
// ticker endpoint is public.
func NewFeed(binanceSymbol, venueSymbol string, sink QuoteSink) *Feed {
	return &Feed{
		client:        binance.NewClient("", ""),
		binanceSymbol: binanceSymbol,
		venueSymbol:   venueSymbol,
		interval:      time.Second,
		sink:          sink,
	}
}

// Run polls until the context is cancelled. Errors are logged and the
// poll continues; a quote gap just stalls the paper venue, which the
// engine already tolerates.
func (f *Feed) Run(ctx context.Context) {
	logger.Infof("📡 Quote feed started: %s -> %s", f.binanceSymbol, f.venueSymbol)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("📡 Quote feed stopped")
			return
		case <-ticker.C:
			if err := f.poll(ctx); err != nil {
				logger.Debugf("quote feed poll failed: %v", err)
			}
		}
	}
}

func (f *Feed) poll(ctx context.Context) error {
	tickers, err := f.client.NewListBookTickersService().Symbol(f.binanceSymbol).Do(ctx)
	if err != nil {
		return err
	}
	for _, t := range tickers {
		bid, err1 := strconv.ParseFloat(t.BidPrice, 64)
		ask, err2 := strconv.ParseFloat(t.AskPrice, 64)
		if err1 != nil || err2 != nil || bid <= 0 || ask <= 0 {
			continue
		}
		f.sink.SetQuote(f.venueSymbol, venue.Quote{Bid: bid, Ask: ask, Time: time.Now()})
	}
	return nil
}
