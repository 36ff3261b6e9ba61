package refresh

import (
	"context"

	"netgdp/internal/ecosystem"
	"netgdp/internal/gdp"
)

// CompositeTasks warms the snapshot and the series of every token.
func CompositeTasks(agg *gdp.Aggregator, tokens []string) []Task {
	tasks := []Task{{
		Name: "gdp_snapshot",
		Run: func(ctx context.Context) error {
			_, err := agg.ComputeSnapshot(ctx)
			return err
		},
	}}
	for _, token := range tokens {
		tasks = append(tasks, Task{
			Name: "gdp_series_" + token,
			Run: func(ctx context.Context) error {
				_, err := agg.ComputeSeries(ctx, token)
				return err
			},
		})
	}
	return tasks
}

// EcosystemTasks warms the protocol listing and the yield pools.
func EcosystemTasks(svc *ecosystem.Service) []Task {
	return []Task{
		{Name: "top_protocols", Run: func(ctx context.Context) error {
			svc.TopProtocols(ctx)
			return nil
		}},
		{Name: "top_yields", Run: func(ctx context.Context) error {
			svc.TopYields(ctx)
			return nil
		}},
	}
}
