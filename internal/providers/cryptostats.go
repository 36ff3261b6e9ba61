package providers

import (
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"netgdp/internal/fetcher"
)

type CryptoStats struct {
	client *fetcher.Client
}

func NewCryptoStats(client *fetcher.Client) *CryptoStats {
	return &CryptoStats{client: client}
}

// OneDayFees returns the fees collected by the named network on day (UTC).
// A network missing from the listing is an error.
func (s *CryptoStats) OneDayFees(ctx context.Context, name string, day time.Time) (float64, error) {
	body, err := s.client.GetJSON(ctx, "fees/oneDayTotalFees/"+day.UTC().Format("2006-01-02"), nil)
	if err != nil {
		return 0, err
	}
	root, err := parseBody("cryptostats", body)
	if err != nil {
		return 0, err
	}

	items := root
	if !items.IsArray() {
		items = root.Get("data")
	}
	if !items.IsArray() {
		return 0, missingField("cryptostats", "data")
	}

	var (
		value float64
		found bool
	)
	items.ForEach(func(_, item gjson.Result) bool {
		if strings.EqualFold(item.Get("metadata.name").String(), name) {
			value, found = number(item.Get("value"))
			return !found
		}
		return true
	})
	if !found {
		return 0, missingField("cryptostats", name)
	}
	return value, nil
}
