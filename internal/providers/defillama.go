package providers

import (
	"context"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"netgdp/internal/fetcher"
	"netgdp/internal/models"
	"netgdp/internal/timeseries"
)

// DefiLlama covers the api, stablecoins and yields hosts.
type DefiLlama struct {
	api     *fetcher.Client
	stables *fetcher.Client
	yields  *fetcher.Client
}

func NewDefiLlama(api, stables, yields *fetcher.Client) *DefiLlama {
	return &DefiLlama{api: api, stables: stables, yields: yields}
}

// StablecoinAsset is one pegged asset's circulation on a chain.
type StablecoinAsset struct {
	Symbol  string
	Current float64
	PrevDay float64
}

// Protocol is a DefiLlama protocol listing entry.
type Protocol struct {
	Name     string
	Slug     string
	Category string
	Chains   []string
	TVL      float64
	Change1d float64
	Logo     string
}

// OnChain reports whether chain is among the protocol's chains.
func (p Protocol) OnChain(chain string) bool {
	for _, c := range p.Chains {
		if c == chain {
			return true
		}
	}
	return false
}

func chainSlug(chain string) string {
	return url.PathEscape(strings.ToLower(chain))
}

func (d *DefiLlama) get(ctx context.Context, c *fetcher.Client, path string, params url.Values) (gjson.Result, error) {
	body, err := c.GetJSON(ctx, path, params)
	if err != nil {
		return gjson.Result{}, err
	}
	return parseBody("defillama", body)
}

// HistoricalChainTVL returns the daily TVL history of chain.
func (d *DefiLlama) HistoricalChainTVL(ctx context.Context, chain string) ([]models.Point, error) {
	root, err := d.get(ctx, d.api, "v2/historicalChainTvl/"+chainSlug(chain), nil)
	if err != nil {
		return nil, err
	}
	if !root.IsArray() {
		return nil, missingField("defillama", "historicalChainTvl")
	}
	return datePoints(root, "tvl"), nil
}

// Stablecoins lists every pegged asset circulating on chain.
func (d *DefiLlama) Stablecoins(ctx context.Context, chain string) ([]StablecoinAsset, error) {
	root, err := d.get(ctx, d.stables, "stablecoins", url.Values{"includePrices": {"true"}})
	if err != nil {
		return nil, err
	}
	assets := root.Get("peggedAssets")
	if !assets.IsArray() {
		return nil, missingField("defillama", "peggedAssets")
	}

	key := gjsonKey(chain)
	var out []StablecoinAsset
	assets.ForEach(func(_, a gjson.Result) bool {
		onChain := a.Get("chainCirculating." + key)
		if !onChain.Exists() {
			return true
		}
		current, _ := number(onChain.Get("current.peggedUSD"))
		prev, _ := number(onChain.Get("circulatingPrevDay.peggedUSD"))
		out = append(out, StablecoinAsset{
			Symbol:  a.Get("symbol").String(),
			Current: current,
			PrevDay: prev,
		})
		return true
	})
	return out, nil
}

// StablecoinChart returns total stablecoin circulation on chain over time.
func (d *DefiLlama) StablecoinChart(ctx context.Context, chain string) ([]models.Point, error) {
	root, err := d.get(ctx, d.stables, "stablecoincharts/"+url.PathEscape(chain), nil)
	if err != nil {
		return nil, err
	}
	if !root.IsArray() {
		return nil, missingField("defillama", "stablecoincharts")
	}
	return datePoints(root, "totalCirculating.peggedUSD"), nil
}

// FeesOverview returns the chain's fees for the last 24h and the 24h before.
func (d *DefiLlama) FeesOverview(ctx context.Context, chain string) (total24h, total48to24 float64, err error) {
	root, err := d.get(ctx, d.api, "overview/fees/"+chainSlug(chain), nil)
	if err != nil {
		return 0, 0, err
	}
	total24h, ok := number(root.Get("total24h"))
	if !ok {
		return 0, 0, missingField("defillama", "total24h")
	}
	total48to24, _ = number(root.Get("total48to24"))
	return total24h, total48to24, nil
}

// FeesHistory returns the chain's daily fees over time.
func (d *DefiLlama) FeesHistory(ctx context.Context, chain string) ([]models.Point, error) {
	root, err := d.get(ctx, d.api, "summary/fees/"+chainSlug(chain), nil)
	if err != nil {
		return nil, err
	}
	chart := root.Get("totalDataChart")
	if !chart.IsArray() {
		return nil, missingField("defillama", "totalDataChart")
	}
	return pairPoints(chart), nil
}

// Protocols returns the full protocol listing.
func (d *DefiLlama) Protocols(ctx context.Context) ([]Protocol, error) {
	root, err := d.get(ctx, d.api, "protocols", nil)
	if err != nil {
		return nil, err
	}
	if !root.IsArray() {
		return nil, missingField("defillama", "protocols")
	}

	var out []Protocol
	root.ForEach(func(_, p gjson.Result) bool {
		proto := Protocol{
			Name:     p.Get("name").String(),
			Slug:     p.Get("slug").String(),
			Category: p.Get("category").String(),
			Logo:     p.Get("logo").String(),
		}
		proto.TVL, _ = number(p.Get("tvl"))
		proto.Change1d, _ = number(p.Get("change_1d"))
		for _, c := range p.Get("chains").Array() {
			proto.Chains = append(proto.Chains, c.String())
		}
		out = append(out, proto)
		return true
	})
	return out, nil
}

// YieldPools returns every pool listed by the yields host.
func (d *DefiLlama) YieldPools(ctx context.Context) ([]models.YieldPool, error) {
	root, err := d.get(ctx, d.yields, "pools", nil)
	if err != nil {
		return nil, err
	}
	data := root.Get("data")
	if !data.IsArray() {
		return nil, missingField("defillama", "data")
	}

	var out []models.YieldPool
	data.ForEach(func(_, p gjson.Result) bool {
		pool := models.YieldPool{
			Pool:    p.Get("pool").String(),
			Project: p.Get("project").String(),
			Symbol:  p.Get("symbol").String(),
			Chain:   p.Get("chain").String(),
		}
		pool.APY, _ = number(p.Get("apy"))
		pool.TVLUSD, _ = number(p.Get("tvlUsd"))
		out = append(out, pool)
		return true
	})
	return out, nil
}

// NFTMarketCap sums the market cap of every NFT collection on chain.
func (d *DefiLlama) NFTMarketCap(ctx context.Context, chain string) (float64, error) {
	root, err := d.get(ctx, d.api, "nfts/collections", nil)
	if err != nil {
		return 0, err
	}
	if !root.IsArray() {
		return 0, missingField("defillama", "nfts/collections")
	}

	total := 0.0
	root.ForEach(func(_, c gjson.Result) bool {
		for _, ch := range c.Get("chains").Array() {
			if ch.String() == chain {
				v, _ := number(c.Get("marketCap"))
				total += v
				break
			}
		}
		return true
	})
	return total, nil
}

// NFTDailyVolume returns the chain's NFT volume over the last day.
func (d *DefiLlama) NFTDailyVolume(ctx context.Context, chain string) (float64, error) {
	root, err := d.get(ctx, d.api, "nfts/volumes", nil)
	if err != nil {
		return 0, err
	}
	for _, entry := range root.Array() {
		if entry.Get("name").String() == chain {
			if v, ok := number(entry.Get("volume1d")); ok {
				return v, nil
			}
		}
	}
	return 0, missingField("defillama", chain+".volume1d")
}

// NFTHistory returns total NFT market cap on chain over time.
func (d *DefiLlama) NFTHistory(ctx context.Context, chain string) ([]models.Point, error) {
	root, err := d.get(ctx, d.api, "nfts/historical/"+chainSlug(chain), nil)
	if err != nil {
		return nil, err
	}
	if !root.IsArray() {
		return nil, missingField("defillama", "nfts/historical")
	}
	return datePoints(root, "totalMarketCap"), nil
}

// datePoints reads [{"date": epoch, <valuePath>: value}, ...], skipping
// entries without both fields.
func datePoints(arr gjson.Result, valuePath string) []models.Point {
	var out []models.Point
	arr.ForEach(func(_, item gjson.Result) bool {
		ts, okT := number(item.Get("date"))
		v, okV := number(item.Get(valuePath))
		if okT && okV {
			out = append(out, models.Point{Time: timeseries.EpochTime(ts), Value: v})
		}
		return true
	})
	return out
}
