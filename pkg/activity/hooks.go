package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Event describes a container lifecycle occurrence that can be fanned
// out to hooks. IDs are stringly-typed to avoid coupling call sites to
// specific identifier types.
type Event struct {
	Verb        string
	ContainerID string
	ObjectType  string
	Channel     string
	FromState   string
	ToState     string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// ContainerHook receives normalized container lifecycle events.
type ContainerHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ContainerHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ContainerHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any fail.
// It normalizes the event and short-circuits when required fields are missing.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims whitespace, clones metadata, and ensures a timestamp is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.ContainerID = strings.TrimSpace(event.ContainerID)
	normalized.ObjectType = strings.TrimSpace(event.ObjectType)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.FromState = strings.TrimSpace(event.FromState)
	normalized.ToState = strings.TrimSpace(event.ToState)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
