package activity

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

// Event is one state change as seen by activity sinks. IDs are strings so
// call sites do not depend on a particular UUID type.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Path returns the tree path the event refers to, or "" for whole-tree
// events such as restores and transaction rollbacks.
func (e Event) Path() string {
	path, _ := e.Metadata["path"].(string)
	return path
}

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify calls fn.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans an event out to every hook.
type Hooks []ActivityHook

// Enabled reports whether there is at least one hook.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes event and forwards it to every hook. Events without a
// verb, object type or object ID are dropped. Hook errors are joined; one
// failing hook does not stop the others.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
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
	return errors.Join(errs...)
}

// ForPath forwards only events at prefix or below it. Matching is on
// segment boundaries: "user" covers "user.name" but not "username". Whole
// tree events are forwarded to every prefix.
func ForPath(prefix string, hook ActivityHook) ActivityHook {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	return HookFunc(func(ctx context.Context, event Event) error {
		if hook == nil {
			return nil
		}
		path := event.Path()
		if prefix == "" || path == "" || path == prefix || strings.HasPrefix(path, prefix+".") {
			return hook.Notify(ctx, event)
		}
		return nil
	})
}

// ForVerbs forwards only events whose verb is listed.
func ForVerbs(hook ActivityHook, verbs ...string) ActivityHook {
	allowed := slices.Clone(verbs)
	return HookFunc(func(ctx context.Context, event Event) error {
		if hook == nil || !slices.Contains(allowed, event.Verb) {
			return nil
		}
		return hook.Notify(ctx, event)
	})
}

// NormalizeEvent trims identifiers, copies metadata and recipients, and
// stamps OccurredAt when it is zero.
func NormalizeEvent(event Event) Event {
	out := event
	for _, field := range []*string{
		&out.Verb, &out.ActorID, &out.UserID, &out.TenantID,
		&out.ObjectType, &out.ObjectID, &out.Channel, &out.DefinitionCode,
	} {
		*field = strings.TrimSpace(*field)
	}
	out.Metadata = cloneMap(event.Metadata)
	out.Recipients = nil
	if len(event.Recipients) > 0 {
		out.Recipients = slices.Clone(event.Recipients)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
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
