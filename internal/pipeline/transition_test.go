package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/appreciation-reel/internal/media"
)

func TestFadeOutStart(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		fade     float64
		want     float64
	}{
		{"normal clip", 10, 0.5, 9.5},
		{"exactly fade length", 0.5, 0.5, 0},
		{"shorter than fade", 0.3, 0.5, 0},
		{"zero duration", 0, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FadeOutStart(tt.duration, tt.fade), 1e-9)
		})
	}
}

func TestTransitionApplier_FadesEachClip(t *testing.T) {
	ctx := context.Background()
	gw := &mockGateway{}
	clips := testClips("jane_doe", "emma", "noah")

	gw.On("Execute", ctx, mock.MatchedBy(func(op media.Operation) bool {
		return op.Kind == media.OpProbeDuration
	})).Return(media.Result{Duration: 4}, nil).Twice()
	gw.On("Execute", ctx, mock.MatchedBy(func(op media.Operation) bool {
		return op.Kind == media.OpFade && op.FadeOutStart == 3.5 && op.FadeDuration == 0.5
	})).Return(media.Result{}, nil).Twice()

	a := NewTransitionApplier(gw, 0.5, testProfile, nil, nil)
	out := a.Apply(ctx, clips, "/scratch")

	require.Len(t, out, 2)
	assert.Equal(t, "/scratch/fade_000_jane_doe_emma.mp4", out[0].Path)
	assert.Equal(t, "/scratch/fade_001_jane_doe_noah.mp4", out[1].Path)
	assert.Equal(t, "emma", out[0].Submitter)
	gw.AssertExpectations(t)
}

func TestTransitionApplier_PassThroughOnFailure(t *testing.T) {
	clips := testClips("jane_doe", "emma", "noah", "zoe")
	gw := &fakeGateway{duration: 5, fail: func(op media.Operation) error {
		switch {
		case op.Kind == media.OpProbeDuration && op.Inputs[0] == "/in/jane_doe_emma.mp4":
			return errors.New("probe failed")
		case op.Kind == media.OpFade && op.Inputs[0] == "/in/jane_doe_zoe.mp4":
			return errors.New("fade failed")
		}
		return nil
	}}

	a := NewTransitionApplier(gw, 0.5, testProfile, nil, nil)
	out := a.Apply(context.Background(), clips, "/scratch")

	require.Len(t, out, 3)
	assert.Equal(t, "/in/jane_doe_emma.mp4", out[0].Path)
	assert.Equal(t, "/scratch/fade_001_jane_doe_noah.mp4", out[1].Path)
	assert.Equal(t, "/in/jane_doe_zoe.mp4", out[2].Path)
	assert.Len(t, gw.callsOf(media.OpFade), 2)
}

func TestTransitionApplier_DefaultFade(t *testing.T) {
	a := NewTransitionApplier(&fakeGateway{}, 0, testProfile, nil, nil)
	assert.Equal(t, DefaultFade, a.fade)
}
