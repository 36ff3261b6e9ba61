package providers

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"netgdp/internal/fetcher"
	"netgdp/internal/models"
	"netgdp/internal/timeseries"
)

type CoinGecko struct {
	client *fetcher.Client
}

func NewCoinGecko(client *fetcher.Client) *CoinGecko {
	return &CoinGecko{client: client}
}

// MarketData returns price, 24h change, 24h volume and market cap of coinID.
func (g *CoinGecko) MarketData(ctx context.Context, coinID string) (models.MarketData, error) {
	body, err := g.client.GetJSON(ctx, "simple/price", url.Values{
		"ids":                 {coinID},
		"vs_currencies":       {"usd"},
		"include_market_cap":  {"true"},
		"include_24hr_vol":    {"true"},
		"include_24hr_change": {"true"},
	})
	if err != nil {
		return models.MarketData{}, err
	}
	root, err := parseBody("coingecko", body)
	if err != nil {
		return models.MarketData{}, err
	}

	coin := root.Get(gjsonKey(coinID))
	if !coin.Exists() {
		return models.MarketData{}, missingField("coingecko", coinID)
	}
	out := models.MarketData{Source: "coingecko"}
	fields := []struct {
		key string
		dst *float64
	}{
		{"usd", &out.Price},
		{"usd_market_cap", &out.MarketCap},
		{"usd_24h_change", &out.Change24h},
		{"usd_24h_vol", &out.Volume24h},
	}
	for _, f := range fields {
		v, ok := number(coin.Get(f.key))
		if !ok {
			return models.MarketData{}, missingField("coingecko", coinID+"."+f.key)
		}
		*f.dst = v
	}
	return out, nil
}

// MarketCaps fetches the USD market cap of every id in one batched request.
// Ids absent from the response are omitted from the result.
func (g *CoinGecko) MarketCaps(ctx context.Context, ids []string) (map[string]float64, error) {
	body, err := g.client.GetJSON(ctx, "simple/price", url.Values{
		"ids":                {strings.Join(ids, ",")},
		"vs_currencies":      {"usd"},
		"include_market_cap": {"true"},
	})
	if err != nil {
		return nil, err
	}
	root, err := parseBody("coingecko", body)
	if err != nil {
		return nil, err
	}
	if !root.IsObject() {
		return nil, missingField("coingecko", "ids")
	}

	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		if v, ok := number(root.Get(gjsonKey(id) + ".usd_market_cap")); ok {
			out[id] = v
		}
	}
	return out, nil
}

// MarketChartRange returns the market cap history of coinID between from and to.
func (g *CoinGecko) MarketChartRange(ctx context.Context, coinID string, from, to time.Time) ([]models.Point, error) {
	body, err := g.client.GetJSON(ctx, "coins/"+url.PathEscape(coinID)+"/market_chart/range", url.Values{
		"vs_currency": {"usd"},
		"from":        {strconv.FormatInt(from.Unix(), 10)},
		"to":          {strconv.FormatInt(to.Unix(), 10)},
	})
	if err != nil {
		return nil, err
	}
	root, err := parseBody("coingecko", body)
	if err != nil {
		return nil, err
	}
	caps := root.Get("market_caps")
	if !caps.IsArray() {
		return nil, missingField("coingecko", "market_caps")
	}
	return pairPoints(caps), nil
}

// pairPoints reads [[epoch, value], ...] arrays, skipping malformed pairs.
func pairPoints(arr gjson.Result) []models.Point {
	var out []models.Point
	arr.ForEach(func(_, pair gjson.Result) bool {
		ts, okT := number(pair.Get("0"))
		v, okV := number(pair.Get("1"))
		if okT && okV {
			out = append(out, models.Point{Time: timeseries.EpochTime(ts), Value: v})
		}
		return true
	})
	return out
}

// gjsonKey escapes path metacharacters in a literal object key.
func gjsonKey(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}
