package app

import "time"

// Emitter receives write events, typically to export metrics.
type Emitter interface {
	OnFlush(collection string, ops int, duration time.Duration)
	OnDuplicate(collection string)
	OnRetry(collection string, attempt int, err error)
	OnDrop(collection string, ops int)
	OnRejected(err error)
	OnBreakerState(state string)
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) OnFlush(string, int, time.Duration) {}
func (NopEmitter) OnDuplicate(string)                 {}
func (NopEmitter) OnRetry(string, int, error)         {}
func (NopEmitter) OnDrop(string, int)                 {}
func (NopEmitter) OnRejected(error)                   {}
func (NopEmitter) OnBreakerState(string)              {}
