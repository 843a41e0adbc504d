package notifications

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// SinkMock is a testify mock for Sink
type SinkMock struct {
	mock.Mock
}

func (m *SinkMock) Emit(ctx context.Context, kind Kind, payload interface{}) {
	m.Called(ctx, kind, payload)
}

func (m *SinkMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Recorder is a Sink that remembers everything emitted, for handler tests
type Recorder struct {
	mu      sync.Mutex
	Emitted []Envelope
}

func (r *Recorder) Emit(ctx context.Context, kind Kind, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Emitted = append(r.Emitted, Envelope{Kind: kind, Payload: payload})
}

func (r *Recorder) Close() error { return nil }

// Kinds returns the emitted kinds in order
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, len(r.Emitted))
	for i, e := range r.Emitted {
		kinds[i] = e.Kind
	}
	return kinds
}
