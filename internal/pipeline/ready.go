package pipeline

import "go.uber.org/atomic"

// ReadyState tracks the last polled readiness of the upstream prediction
// service. Written by the scheduler's status poll, read by every handler
// that needs the reference data loaded.
type ReadyState struct {
	flag atomic.Bool
}

func NewReadyState() *ReadyState {
	return &ReadyState{}
}

func (r *ReadyState) Ready() bool {
	return r.flag.Load()
}

func (r *ReadyState) Set(ready bool) {
	r.flag.Store(ready)
}
