package sources

import (
	"time"

	"netgdp/config"
	"netgdp/internal/cache"
	"netgdp/logger"
)

// Deps wires adapters to their upstreams.
type Deps struct {
	CoinGecko   CoinGeckoAPI
	DefiLlama   DefiLlamaAPI
	CryptoStats CryptoStatsAPI
	Binance     TickerAPI

	Chain       config.ChainConfig
	Protocols   []string
	Stablecoins []string

	Cache *cache.Cache
	TTL   TTLs
	Clock func() time.Time
	Log   *logger.Log
}

// Set is every adapter built from one Deps.
type Set struct {
	MonetaryBase *MonetaryBase
	TVL          *LockedValue
	Fees         *ProtocolRevenue
	Stablecoins  *StablecoinSupply
	Protocols    *ProtocolMarketCaps
	Cultural     *CulturalValue
}

func Build(d Deps) *Set {
	return &Set{
		MonetaryBase: NewMonetaryBase(d),
		TVL:          NewLockedValue(d),
		Fees:         NewProtocolRevenue(d),
		Stablecoins:  NewStablecoinSupply(d),
		Protocols:    NewProtocolMarketCaps(d),
		Cultural:     NewCulturalValue(d),
	}
}

// Ordered returns the components in declaration order. The cultural
// component is appended only when enabled.
func (s *Set) Ordered(cultural bool) []Source {
	out := []Source{s.MonetaryBase, s.TVL, s.Fees, s.Stablecoins, s.Protocols}
	if cultural {
		out = append(out, s.Cultural)
	}
	return out
}
