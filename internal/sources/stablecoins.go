package sources

import (
	"context"
	"fmt"

	"netgdp/internal/cache"
	"netgdp/internal/models"
	"netgdp/internal/period"
)

const othersBucket = "Others"

// StablecoinSupply is the stablecoin float on the chain.
type StablecoinSupply struct {
	base
	llama   DefiLlamaAPI
	chain   string
	tracked []string
}

func NewStablecoinSupply(d Deps) *StablecoinSupply {
	return &StablecoinSupply{
		base:    newBase(models.Stablecoins, d),
		llama:   d.DefiLlama,
		chain:   d.Chain.Name,
		tracked: d.Stablecoins,
	}
}

// emptyDistribution has one zero bucket per tracked symbol plus Others.
func (s *StablecoinSupply) emptyDistribution() models.OrderedMap[float64] {
	dist := make(models.OrderedMap[float64], 0, len(s.tracked)+1)
	for _, sym := range s.tracked {
		dist.Set(sym, 0)
	}
	dist.Set(othersBucket, 0)
	return dist
}

// Supply returns the total, its 24h change and the bucket distribution. The
// buckets always sum to the total; untracked symbols land in Others.
func (s *StablecoinSupply) Supply(ctx context.Context) (out models.StablecoinSupply) {
	defer func() {
		if r := recover(); r != nil {
			s.fail("snapshot", fmt.Errorf("panic: %v", r))
			out = models.StablecoinSupply{Distribution: s.emptyDistribution(), Degraded: true}
		}
	}()

	supply, err := cache.Remember(ctx, s.cache, cache.Key(string(s.name), "supply", s.chain), s.ttl.Snapshot, s.load)
	if err != nil {
		s.fail("snapshot", err)
		return models.StablecoinSupply{Distribution: s.emptyDistribution(), Degraded: true}
	}
	return supply
}

func (s *StablecoinSupply) load(ctx context.Context) (models.StablecoinSupply, error) {
	assets, err := s.llama.Stablecoins(ctx, s.chain)
	if err != nil {
		return models.StablecoinSupply{}, err
	}

	tracked := make(map[string]bool, len(s.tracked))
	for _, sym := range s.tracked {
		tracked[sym] = true
	}

	dist := s.emptyDistribution()
	var total, prev float64
	for _, a := range assets {
		total += a.Current
		prev += a.PrevDay
		bucket := othersBucket
		if tracked[a.Symbol] {
			bucket = a.Symbol
		}
		cur, _ := dist.Get(bucket)
		dist.Set(bucket, cur+a.Current)
	}

	return models.StablecoinSupply{
		Total:        total,
		Change24h:    percentChange(total, prev),
		Distribution: dist,
	}, nil
}

func (s *StablecoinSupply) Snapshot(ctx context.Context) models.MetricSnapshot {
	supply := s.Supply(ctx)
	snap := models.MetricSnapshot{Value: supply.Total, Change24h: supply.Change24h, Degraded: supply.Degraded}
	if !supply.Degraded {
		snap.Source = "defillama"
	}
	return snap
}

func (s *StablecoinSupply) Series(ctx context.Context, w period.Window) models.MetricSeries {
	return s.series(ctx, w, func(ctx context.Context) ([]models.Point, error) {
		return s.llama.StablecoinChart(ctx, s.chain)
	})
}
