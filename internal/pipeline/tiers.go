package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTiers is returned by TryTiers when given nothing to try.
var ErrNoTiers = errors.New("pipeline: no tiers to try")

// Tier is one strategy in an ordered fallback chain.
type Tier[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// TryTiers runs tiers in order and returns the first success together with
// the name of the tier that produced it. When every tier fails the returned
// error joins each tier's error. A cancelled context stops the chain before
// the next tier starts.
func TryTiers[T any](ctx context.Context, tiers []Tier[T]) (T, string, error) {
	var zero T
	if len(tiers) == 0 {
		return zero, "", ErrNoTiers
	}

	errs := make([]error, 0, len(tiers))
	for _, tier := range tiers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := tier.Run(ctx)
		if err == nil {
			return v, tier.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", tier.Name, err))
	}
	return zero, "", errors.Join(errs...)
}
