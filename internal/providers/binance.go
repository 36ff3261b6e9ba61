package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"netgdp/config"
	"netgdp/internal/fetcher"
	"netgdp/internal/metrics"
	"netgdp/internal/models"
)

// Binance reads 24h ticker statistics through the go-binance client.
type Binance struct {
	client *binance.Client
}

func NewBinance(cfg config.ProviderConfig) *Binance {
	client := binance.NewClient("", "")
	client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		client.BaseURL = base
	}
	return &Binance{client: client}
}

// Ticker returns last price, 24h change percent and 24h quote volume of
// symbol. Binance has no market cap, so MarketCap is left zero.
func (b *Binance) Ticker(ctx context.Context, symbol string) (models.MarketData, error) {
	stats, err := b.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			metrics.ReportLimitFromResponse(nil, "binance", 0, apiErr.Message)
		}
		return models.MarketData{}, fmt.Errorf("binance: ticker %s: %w: %w", symbol, fetcher.ErrUpstreamUnavailable, err)
	}
	if len(stats) == 0 || stats[0] == nil {
		return models.MarketData{}, missingField("binance", symbol)
	}

	s := stats[0]
	price, errP := strconv.ParseFloat(s.LastPrice, 64)
	change, errC := strconv.ParseFloat(s.PriceChangePercent, 64)
	volume, errV := strconv.ParseFloat(s.QuoteVolume, 64)
	if errP != nil || errC != nil || errV != nil {
		return models.MarketData{}, fmt.Errorf("binance: malformed ticker %s: %w", symbol, fetcher.ErrUpstreamUnavailable)
	}
	return models.MarketData{
		Price:     price,
		Change24h: change,
		Volume24h: volume,
		Source:    "binance",
	}, nil
}
