package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tier(name string, v int, err error, calls *[]string) Tier[int] {
	return Tier[int]{
		Name: name,
		Run: func(context.Context) (int, error) {
			*calls = append(*calls, name)
			return v, err
		},
	}
}

func TestTryTiers_FirstSuccessStops(t *testing.T) {
	var calls []string
	v, name, err := TryTiers(context.Background(), []Tier[int]{
		tier("copy", 1, nil, &calls),
		tier("reencode", 2, nil, &calls),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, "copy", name)
	assert.Equal(t, []string{"copy"}, calls)
}

func TestTryTiers_FallsBack(t *testing.T) {
	var calls []string
	v, name, err := TryTiers(context.Background(), []Tier[int]{
		tier("copy", 0, errors.New("boom"), &calls),
		tier("reencode", 2, nil, &calls),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, "reencode", name)
	assert.Equal(t, []string{"copy", "reencode"}, calls)
}

func TestTryTiers_AllFailJoinsErrors(t *testing.T) {
	var calls []string
	errCopy := errors.New("copy broke")
	errEncode := errors.New("encode broke")

	_, name, err := TryTiers(context.Background(), []Tier[int]{
		tier("copy", 0, errCopy, &calls),
		tier("reencode", 0, errEncode, &calls),
	})

	require.Error(t, err)
	assert.Empty(t, name)
	assert.ErrorIs(t, err, errCopy)
	assert.ErrorIs(t, err, errEncode)
	assert.Contains(t, err.Error(), "copy:")
	assert.Contains(t, err.Error(), "reencode:")
}

func TestTryTiers_Empty(t *testing.T) {
	_, _, err := TryTiers[int](context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTiers)
}

func TestTryTiers_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls []string
	_, _, err := TryTiers(ctx, []Tier[int]{tier("copy", 1, nil, &calls)})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}
