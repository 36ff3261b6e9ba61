// Package ecosystem serves the chain's supporting views: top protocols,
// category distribution, top yield pools, the stablecoin breakdown and the
// methodology. Every view degrades to empty rather than failing.
package ecosystem

import (
	"context"
	"fmt"
	"sort"
	"time"

	"netgdp/internal/cache"
	"netgdp/internal/categories"
	"netgdp/internal/metrics"
	"netgdp/internal/models"
	"netgdp/internal/providers"
	"netgdp/logger"
)

// TopN bounds the top protocols and top yields views.
const TopN = 10

// ListingAPI is the protocol and pool listing upstream.
type ListingAPI interface {
	Protocols(ctx context.Context) ([]providers.Protocol, error)
	YieldPools(ctx context.Context) ([]models.YieldPool, error)
}

// SupplyReader yields the stablecoin breakdown.
type SupplyReader interface {
	Supply(ctx context.Context) models.StablecoinSupply
}

var _ ListingAPI = (*providers.DefiLlama)(nil)

type Service struct {
	api      ListingAPI
	supply   SupplyReader
	chain    string
	cache    *cache.Cache
	ttl      time.Duration
	cultural bool
	log      *logger.Log
}

type Options struct {
	Chain    string
	Cache    *cache.Cache
	TTL      time.Duration
	Cultural bool
	Log      *logger.Log
}

func New(api ListingAPI, supply SupplyReader, opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = logger.GetLogger()
	}
	return &Service{
		api:      api,
		supply:   supply,
		chain:    opts.Chain,
		cache:    opts.Cache,
		ttl:      opts.TTL,
		cultural: opts.Cultural,
		log:      log,
	}
}

func (s *Service) warn(view string, err error) {
	metrics.IncrementDegraded(view, "ecosystem")
	s.log.WithComponent("ecosystem").WithField("view", view).WithError(err).Warn("view unavailable; serving empty result")
}

// chainProtocols returns the chain's non-CEX protocols.
func (s *Service) chainProtocols(ctx context.Context) (out []providers.Protocol, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	all, err := cache.Remember(ctx, s.cache, cache.Key("protocols", "listing"), s.ttl, s.api.Protocols)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.OnChain(s.chain) && !categories.IsCEX(p.Category) {
			out = append(out, p)
		}
	}
	return out, nil
}

// TopProtocols returns the chain's largest protocols by TVL, CEXs excluded.
func (s *Service) TopProtocols(ctx context.Context) []models.ProtocolSummary {
	protos, err := s.chainProtocols(ctx)
	if err != nil {
		s.warn("top_protocols", err)
		return []models.ProtocolSummary{}
	}
	sort.SliceStable(protos, func(i, j int) bool { return protos[i].TVL > protos[j].TVL })
	if len(protos) > TopN {
		protos = protos[:TopN]
	}

	out := make([]models.ProtocolSummary, 0, len(protos))
	for _, p := range protos {
		cat, sub := categories.Map(p.Category)
		out = append(out, models.ProtocolSummary{
			Name:        p.Name,
			Slug:        p.Slug,
			TVL:         p.TVL,
			Change1d:    p.Change1d,
			Category:    cat,
			Subcategory: sub,
			Logo:        p.Logo,
		})
	}
	return out
}

// CategoryDistribution sums the chain's TVL per CCAF category, largest first.
func (s *Service) CategoryDistribution(ctx context.Context) []models.CategoryTVL {
	protos, err := s.chainProtocols(ctx)
	if err != nil {
		s.warn("categories", err)
		return []models.CategoryTVL{}
	}

	index := map[string]int{}
	out := []models.CategoryTVL{}
	for _, p := range protos {
		cat, _ := categories.Map(p.Category)
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, models.CategoryTVL{Category: cat})
		}
		out[i].TVL += p.TVL
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TVL > out[j].TVL })
	return out
}

// TopYields returns the chain's pools with the highest APY.
func (s *Service) TopYields(ctx context.Context) (out []models.YieldPool) {
	defer func() {
		if r := recover(); r != nil {
			s.warn("top_yields", fmt.Errorf("panic: %v", r))
			out = []models.YieldPool{}
		}
	}()

	pools, err := cache.Remember(ctx, s.cache, cache.Key("yields", "top", s.chain), s.ttl, func(ctx context.Context) ([]models.YieldPool, error) {
		all, err := s.api.YieldPools(ctx)
		if err != nil {
			return nil, err
		}
		chainPools := make([]models.YieldPool, 0, len(all))
		for _, p := range all {
			if p.Chain == s.chain {
				chainPools = append(chainPools, p)
			}
		}
		sort.SliceStable(chainPools, func(i, j int) bool { return chainPools[i].APY > chainPools[j].APY })
		if len(chainPools) > TopN {
			chainPools = chainPools[:TopN]
		}
		return chainPools, nil
	})
	if err != nil {
		s.warn("top_yields", err)
		return []models.YieldPool{}
	}
	return pools
}

// Stablecoins returns the stablecoin total, change and bucket distribution.
func (s *Service) Stablecoins(ctx context.Context) models.StablecoinSupply {
	return s.supply.Supply(ctx)
}

// Methodology describes the enabled components in declaration order.
func (s *Service) Methodology() []models.MethodologyEntry {
	out := make([]models.MethodologyEntry, 0, len(methodology))
	for _, m := range methodology {
		if m.Metric == models.Cultural && !s.cultural {
			continue
		}
		m.Sources = append([]string(nil), m.Sources...)
		out = append(out, m)
	}
	return out
}
