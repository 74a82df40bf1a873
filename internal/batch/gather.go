// Package batch runs independent units of work concurrently and joins them.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work whose failure stays local to its own result
type Task[T any] func(ctx context.Context) (T, error)

// TaskResult represents the result of a task execution
type TaskResult[T any] struct {
	Index    int
	Value    T
	Error    error
	Duration time.Duration
}

// Gather starts every task at once and waits until all of them have returned.
// There is no concurrency cap and no short-circuit: a failing task never
// cancels its siblings. Results keep the order of tasks regardless of the
// order in which they complete.
func Gather[T any](ctx context.Context, tasks []Task[T]) []TaskResult[T] {
	results := make([]TaskResult[T], len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			start := time.Now()
			value, err := run(ctx, task)
			// each goroutine owns exactly one slot
			results[i] = TaskResult[T]{
				Index:    i,
				Value:    value,
				Error:    err,
				Duration: time.Since(start),
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// run converts a panicking task into an error so one bad unit cannot take
// down the whole batch
func run[T any](ctx context.Context, task Task[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}

// Failed counts the results carrying an error
func Failed[T any](results []TaskResult[T]) int {
	n := 0
	for _, r := range results {
		if r.Error != nil {
			n++
		}
	}
	return n
}
