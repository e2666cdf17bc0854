// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package ai

import (
	"context"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// DefaultDecider is the router name used for unassigned templates.
const DefaultDecider = "simple"

// Router dispatches decisions to the decider assigned to the acting enemy's
// template. Assignments are strings of the form "simple", "simple:<targeting>"
// or "lua:<script>".
type Router struct {
	mu       sync.RWMutex
	fallback Decider
	scripts  map[string]*Script
	assigned map[string]string
	deciders map[string]Decider
}

// NewRouter creates a router whose unassigned templates use the simple AI.
func NewRouter() *Router {
	return &Router{
		fallback: NewSimple(),
		scripts:  make(map[string]*Script),
		assigned: make(map[string]string),
		deciders: make(map[string]Decider),
	}
}

// AddScript makes a compiled script available to "lua:<name>" assignments.
func (r *Router) AddScript(s *Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[s.Name()] = s
}

// Assign binds a template to a decider spec. An empty spec means the default.
func (r *Router) Assign(templateID, spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if spec == "" {
		spec = DefaultDecider
	}
	d, err := r.build(spec)
	if err != nil {
		return oops.In("ai").With("template", templateID).With("ai", spec).Wrap(err)
	}
	r.assigned[templateID] = spec
	r.deciders[templateID] = d
	return nil
}

func (r *Router) build(spec string) (Decider, error) {
	kind, arg, _ := strings.Cut(spec, ":")
	switch kind {
	case "simple":
		targeting, err := ParseTargeting(arg)
		if err != nil {
			return nil, err
		}
		return &Simple{Targeting: targeting}, nil
	case "lua":
		s, ok := r.scripts[arg]
		if !ok {
			return nil, oops.Errorf("unknown AI script %q", arg)
		}
		return s, nil
	default:
		return nil, oops.Errorf("unknown AI kind %q", kind)
	}
}

// Route returns the decider for a template and its name, for logs and metrics.
func (r *Router) Route(templateID string) (string, Decider) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.deciders[templateID]; ok {
		return r.assigned[templateID], d
	}
	return DefaultDecider, r.fallback
}

// Decide implements Decider by delegating to the actor's assigned decider.
func (r *Router) Decide(ctx context.Context, sit Situation) (Decision, error) {
	_, d := r.Route(sit.Self.TemplateID)
	return d.Decide(ctx, sit)
}
