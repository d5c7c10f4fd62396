package fx

import (
	"context"
	"sync"
	"time"
)

// FetchTable resolves rates from every listed currency into the base
// currency, fanning out one fetch per currency and merging the results
// into one frozen Table. The table is handed back atomically: either
// every rate resolved or the first error is returned and no table is
// produced. The core never touches the source directly.
func FetchTable(ctx context.Context, src RateSource, base string, currencies []string) (*Table, error) {
	// Dedupe and drop the base itself; identity needs no rate.
	need := make([]string, 0, len(currencies))
	seen := map[string]bool{base: true}
	for _, c := range currencies {
		if !seen[c] {
			seen[c] = true
			need = append(need, c)
		}
	}

	var (
		mu       sync.Mutex
		rates    = make([]Rate, 0, len(need))
		firstErr error
	)

	asOf := time.Now().UTC()

	var wg sync.WaitGroup
	for _, cur := range need {
		wg.Add(1)
		go func(cur string) {
			defer wg.Done()
			rate, err := src.FetchRate(ctx, cur, base)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			rates = append(rates, Rate{From: cur, To: base, Rate: rate, AsOf: asOf})
		}(cur)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return NewTable(base, asOf, rates), nil
}
