// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"sync"

	"github.com/Query-farm/catbus/catbus"
)

// Job is an item of the Job collection, keyed by name.
type Job struct {
	mu    sync.Mutex
	name  string
	state string
}

func (j *Job) TypeName() string { return "Job" }

// State returns "run" or "stop".
func (j *Job) State() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) setState(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
}

func jobState(state string) *catbus.Method {
	name := "start"
	if state == "stop" {
		name = "stop"
	}
	return &catbus.Method{
		Name: name,
		Call: func(_ *catbus.CallContext, self catbus.Object, _ catbus.Args) (any, error) {
			self.(*Job).setState(state)
			return nil, nil
		},
	}
}

func newJobType() *catbus.Type {
	t := &catbus.Type{
		Name: "Job",
		Args: []string{"name"},
		New: func(_ *catbus.CallContext, args catbus.Args) (catbus.Object, error) {
			name, err := args.String("name")
			if err != nil {
				return nil, err
			}
			return &Job{name: name, state: "run"}, nil
		},
		Attributes: func(obj catbus.Object) map[string]any {
			j := obj.(*Job)
			return map[string]any{"name": j.name, "state": j.State()}
		},
		Methods: []*catbus.Method{
			jobState("stop"),
			jobState("run"),
			{
				Name: "wait",
				Call: func(*catbus.CallContext, catbus.Object, catbus.Args) (any, error) {
					return catbus.NewWaiter(map[string]any{"count": 1}), nil
				},
				Ready: func(_ *catbus.CallContext, self catbus.Object, args catbus.Args) (any, error) {
					count, err := args.Int("count")
					if err != nil {
						return nil, err
					}
					if count < 1 {
						return self.(*Job).name, nil
					}
					return catbus.NewWaiter(map[string]any{"count": count - 1}), nil
				},
			},
		},
	}
	t.Handler = catbus.CollectionHandler(catbus.NewMemoryStore(t, "name"), "name", "state")
	return t
}
