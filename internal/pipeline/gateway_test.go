package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/maauso/appreciation-reel/internal/classify"
	"github.com/maauso/appreciation-reel/internal/media"
)

// mockGateway is a testify mock of media.Gateway.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Execute(ctx context.Context, op media.Operation) (media.Result, error) {
	args := m.Called(ctx, op)
	return args.Get(0).(media.Result), args.Error(1)
}

func opKind(kind media.OpKind) interface{} {
	return mock.MatchedBy(func(op media.Operation) bool { return op.Kind == kind })
}

// fakeGateway succeeds unless fail says otherwise, and records every call.
type fakeGateway struct {
	mu       sync.Mutex
	calls    []media.Operation
	fail     func(op media.Operation) error
	duration float64
	delay    time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeGateway) Execute(ctx context.Context, op media.Operation) (media.Result, error) {
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		prev := f.maxActive.Load()
		if cur <= prev || f.maxActive.CompareAndSwap(prev, cur) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return media.Result{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(op); err != nil {
			return media.Result{}, err
		}
	}
	if op.Kind == media.OpProbeDuration {
		return media.Result{Duration: f.duration}, nil
	}
	return media.Result{Output: op.Output}, nil
}

func (f *fakeGateway) callsOf(kind media.OpKind) []media.Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []media.Operation
	for _, op := range f.calls {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func testClips(group string, submitters ...string) []classify.Clip {
	clips := make([]classify.Clip, len(submitters))
	for i, s := range submitters {
		name := group + "_" + s + ".mp4"
		clips[i] = classify.Clip{
			Path:      "/in/" + name,
			Name:      name,
			GroupKey:  group,
			Submitter: s,
		}
	}
	return clips
}

var (
	testProfile  = media.Profile{Width: 1920, Height: 1080, FPS: 30, CRF: 23, Preset: "medium", AudioBitrate: "128k", SampleRate: 48000}
	testFallback = media.Profile{Width: 1920, Height: 1080, FPS: 30, CRF: 28, Preset: "veryfast", AudioBitrate: "128k", SampleRate: 48000}
)
