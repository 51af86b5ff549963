// Package taskgroup runs independent side-effect tasks concurrently and
// collects their individual failures. Unlike a plain errgroup.Wait, one
// failing task never cancels or hides its siblings.
package taskgroup

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Failure pairs a task name with the error it returned.
type Failure struct {
	Name string
	Err  error
}

// Group joins a set of named tasks.
type Group struct {
	eg errgroup.Group

	mu       sync.Mutex
	failures []Failure
}

// New creates an empty group.
func New() *Group {
	return &Group{}
}

// Go schedules a named task. The task's error is recorded, not propagated,
// so sibling tasks always run to completion.
func (g *Group) Go(name string, fn func() error) {
	g.eg.Go(func() error {
		if err := fn(); err != nil {
			g.mu.Lock()
			g.failures = append(g.failures, Failure{Name: name, Err: err})
			g.mu.Unlock()
		}
		return nil
	})
}

// Wait blocks until every task finished and returns the collected failures.
func (g *Group) Wait() []Failure {
	_ = g.eg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Failure(nil), g.failures...)
}
