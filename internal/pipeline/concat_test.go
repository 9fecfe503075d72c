package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/appreciation-reel/internal/media"
	"github.com/maauso/appreciation-reel/internal/metrics"
)

func strategy(s media.ConcatStrategy) interface{} {
	return mock.MatchedBy(func(op media.Operation) bool {
		return op.Kind == media.OpConcat && op.Strategy == s
	})
}

var testSegments = []Segment{
	{Kind: SegmentIntro, Path: "intro.mp4"},
	{Kind: SegmentClip, Path: "a.mp4", Submitter: "a"},
}

func TestConcatenator_CopySucceeds(t *testing.T) {
	ctx := context.Background()
	gw := &mockGateway{}
	gw.On("Execute", ctx, strategy(media.StrategyCopy)).
		Return(media.Result{Output: "/out/x.mp4"}, nil).Once()

	c := NewConcatenator(gw, testProfile, metrics.New(), nil)
	used, err := c.Concat(ctx, testSegments, "/out/x.mp4")

	require.NoError(t, err)
	assert.Equal(t, "copy", used)
	gw.AssertExpectations(t)
	gw.AssertNumberOfCalls(t, "Execute", 1)
}

func TestConcatenator_FallsBackToReencode(t *testing.T) {
	ctx := context.Background()
	gw := &mockGateway{}
	gw.On("Execute", ctx, strategy(media.StrategyCopy)).
		Return(media.Result{}, &media.FFmpegError{Stderr: "codec mismatch", Err: errors.New("exit status 1")}).Once()
	gw.On("Execute", ctx, strategy(media.StrategyReencode)).
		Return(media.Result{Output: "/out/x.mp4"}, nil).Once()

	c := NewConcatenator(gw, testProfile, nil, nil)
	used, err := c.Concat(ctx, testSegments, "/out/x.mp4")

	require.NoError(t, err)
	assert.Equal(t, "reencode", used)
	gw.AssertExpectations(t)
}

func TestConcatenator_AllTiersFail(t *testing.T) {
	ctx := context.Background()
	gw := &mockGateway{}
	gw.On("Execute", ctx, opKind(media.OpConcat)).
		Return(media.Result{}, errors.New("disk full")).Twice()

	c := NewConcatenator(gw, testProfile, nil, nil)
	_, err := c.Concat(ctx, testSegments, "/out/x.mp4")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy")
	assert.Contains(t, err.Error(), "reencode")
	gw.AssertExpectations(t)
}

func TestConcatenator_InputsInSegmentOrder(t *testing.T) {
	gw := &fakeGateway{}
	c := NewConcatenator(gw, testProfile, nil, nil)

	_, err := c.Concat(context.Background(), testSegments, "/out/x.mp4")

	require.NoError(t, err)
	calls := gw.callsOf(media.OpConcat)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"intro.mp4", "a.mp4"}, calls[0].Inputs)
	assert.Equal(t, "/out/x.mp4", calls[0].Output)
}

func TestConcatenator_NoSegments(t *testing.T) {
	gw := &mockGateway{}
	c := NewConcatenator(gw, testProfile, nil, nil)

	_, err := c.Concat(context.Background(), nil, "/out/x.mp4")

	assert.ErrorIs(t, err, ErrNoSegments)
	gw.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "jane_doe_appreciation.mp4", OutputName("jane_doe", ""))
	assert.Equal(t, "jane_doe_appreciation.mov", OutputName("jane_doe", ".mov"))
	assert.Equal(t, "jane_doe_appreciation.mkv", OutputName("jane_doe", "mkv"))
}
