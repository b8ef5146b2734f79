package engine

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/logger"
	"github.com/kailas-cloud/searchsync/internal/metrics"
)

// KeyFunc extracts the identifier from a hit payload.
type KeyFunc func(hit map[string]any) (string, bool)

// FieldKey reads the identifier from a payload field.
func FieldKey(name string) KeyFunc {
	return func(hit map[string]any) (string, bool) {
		return domain.KeyString(hit[name])
	}
}

// Hits extracts ranked hits from raw. Payload fields listed in strip are
// identifier fields and stay out of the metadata. Hits without an
// identifier are skipped.
func Hits(raw *result.Raw, key KeyFunc, strip ...string) []result.Hit {
	if raw == nil {
		return nil
	}
	hits := make([]result.Hit, 0, len(raw.Hits))
	for _, payload := range raw.Hits {
		k, ok := key(payload)
		if !ok {
			continue
		}
		meta := make(map[string]any, len(payload))
		for name, v := range payload {
			if !slices.Contains(strip, name) {
				meta[name] = v
			}
		}
		hits = append(hits, result.Hit{Key: k, Position: len(hits), Metadata: meta})
	}
	return hits
}

// IDs returns hit identifiers in rank order.
func IDs(hits []result.Hit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.Key)
	}
	return ids
}

// positions maps each identifier to its first rank.
func positions(hits []result.Hit) map[string]int {
	pos := make(map[string]int, len(hits))
	for i, h := range hits {
		if _, ok := pos[h.Key]; !ok {
			pos[h.Key] = i
		}
	}
	return pos
}

// Reconcile loads the records behind hits and returns them in backend rank
// order with hit metadata attached. Hits without a live record are dropped.
func Reconcile(ctx context.Context, model string, hits []result.Hit, f Fetcher) ([]result.Item, error) {
	if len(hits) == 0 {
		return []result.Item{}, nil
	}

	records, err := f.FetchByKeys(ctx, model, IDs(hits))
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	pos := positions(hits)
	slots := make([]*result.Item, len(hits))
	for _, r := range records {
		idx, ok := pos[r.SearchKey()]
		if !ok || slots[idx] != nil {
			continue
		}
		slots[idx] = &result.Item{Record: r, Metadata: hits[idx].Metadata}
	}

	items := make([]result.Item, 0, len(records))
	for _, it := range slots {
		if it != nil {
			items = append(items, *it)
		}
	}
	reportMissing(ctx, model, len(pos)-len(items))
	return items, nil
}

// ReconcileLazy is Reconcile over a streamed cursor. Items are yielded once
// the cursor is drained, since rank order is only known for the full page.
func ReconcileLazy(ctx context.Context, model string, hits []result.Hit, c Cursor) iter.Seq2[result.Item, error] {
	return func(yield func(result.Item, error) bool) {
		if len(hits) == 0 {
			return
		}

		pos := positions(hits)
		slots := make([]*result.Item, len(hits))
		found := 0
		for r, err := range c.CursorByKeys(ctx, model, IDs(hits)) {
			if err != nil {
				yield(result.Item{}, fmt.Errorf("cursor records: %w", err))
				return
			}
			idx, ok := pos[r.SearchKey()]
			if !ok || slots[idx] != nil {
				continue
			}
			slots[idx] = &result.Item{Record: r, Metadata: hits[idx].Metadata}
			found++
		}
		reportMissing(ctx, model, len(pos)-found)

		for _, it := range slots {
			if it == nil {
				continue
			}
			if !yield(*it, nil) {
				return
			}
		}
	}
}

func reportMissing(ctx context.Context, model string, n int) {
	if n <= 0 {
		return
	}
	metrics.ReconcileMissingTotal.WithLabelValues(model).Add(float64(n))
	logger.FromContext(ctx).Debug("Search hits without live records dropped",
		zap.String("model", model),
		zap.Int("missing", n),
	)
}
