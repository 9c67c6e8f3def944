// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"net/url"
	"time"

	"github.com/Query-farm/catbus/rson"
)

// DefaultWaitInterval is the poll interval suggested to clients when neither
// the waiter nor the registry sets one.
const DefaultWaitInterval = 2 * time.Second

// Waiter is returned by a method whose result is not ready yet. Args are
// passed back, decoded, to the method's completion function on each poll.
type Waiter struct {
	Args map[string]any
	// Interval overrides the suggested poll interval when set.
	Interval *time.Duration

	fromResolve bool
}

// NewWaiter returns a Waiter carrying args.
func NewWaiter(args map[string]any) *Waiter {
	return &Waiter{Args: args}
}

// Every sets the suggested poll interval.
func (w *Waiter) Every(d time.Duration) *Waiter {
	w.Interval = &d
	return w
}

// embed renders the poll URL. A waiter returned by a method points at the
// method's /wait path; one returned by the completion function itself
// already came from there.
func (w *Waiter) embed(r *Registry, path string) (any, error) {
	q := url.Values{}
	for k, v := range w.Args {
		text, err := rson.Dump(v)
		if err != nil {
			return nil, err
		}
		q.Set(k, text)
	}
	if !w.fromResolve {
		path += "/" + SegmentWait
	}
	interval := r.waitInterval
	if w.Interval != nil {
		interval = *w.Interval
	}
	return &rson.Waiter{
		URL:         r.prefix + path + "?" + q.Encode(),
		WaitSeconds: interval.Seconds(),
	}, nil
}
