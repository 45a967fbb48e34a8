// Package bg decides how background work runs. Production code uses Async;
// tests swap in Sync so fetches and notifications finish before the call
// that triggered them returns.
package bg

import "sync"

type Runner interface {
	Do(fn func())
}

// Async runs each function in its own goroutine.
type Async struct{}

func (Async) Do(fn func()) {
	go fn()
}

// Sync runs each function inline.
type Sync struct{}

func (Sync) Do(fn func()) {
	fn()
}

// Group tracks work handed to a Runner so a caller can wait for everything
// in flight, such as a poller stopping.
type Group struct {
	Runner Runner
	wg     sync.WaitGroup
}

func (g *Group) Do(fn func()) {
	runner := g.Runner
	if runner == nil {
		runner = Async{}
	}
	g.wg.Add(1)
	runner.Do(func() {
		defer g.wg.Done()
		fn()
	})
}

func (g *Group) Wait() {
	g.wg.Wait()
}
