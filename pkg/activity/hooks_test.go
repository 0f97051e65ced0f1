package activity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:        " container.view.shared.installed ",
		ContainerID: " c-1 ",
		ObjectType:  " container.view ",
		Channel:     " selfref ",
		FromState:   " empty ",
		ToState:     " holding-shared ",
		Metadata:    meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "container.view.shared.installed" || got.ObjectType != "container.view" || got.ContainerID != "c-1" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.Channel != "selfref" || got.FromState != "empty" || got.ToState != "holding-shared" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	if got.Metadata["k"] != "v" {
		t.Fatalf("expected metadata value preserved: %+v", got.Metadata)
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	hooks := Hooks{&CaptureHook{}}
	err := hooks.Notify(context.Background(), Event{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	capture := hooks[0].(*CaptureHook)
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	errBoom1 := errors.New("boom1")
	errBoom2 := errors.New("boom2")
	capture := &CaptureHook{}
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			if ctx != nil {
				ctxSeen = true
			}
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return errBoom1 }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return errBoom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: "container.view.cleared", ObjectType: "container.view", ContainerID: "c-1"})
	if err == nil || !errors.Is(err, errBoom1) || !errors.Is(err, errBoom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), Event{Verb: "container.view.cleared", ObjectType: "container.view"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: ""})
	if !enabled.Enabled() {
		t.Fatalf("expected emitter to be enabled")
	}
	if err := enabled.Emit(context.Background(), Event{Verb: "container.view.cleared", ObjectType: "container.view"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != "selfref" {
		t.Fatalf("expected default channel applied, got %q", capture.Events[0].Channel)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})

	err := emitter.Emit(context.Background(), Event{
		Verb:       "container.payload.extracted",
		ObjectType: "container.payload",
		Channel:    "custom",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", capture.Events[0].Channel)
	}
	if capture.Events[0].OccurredAt != (time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected occurred_at preserved, got %v", capture.Events[0].OccurredAt)
	}
}

func TestBuildEventsShapeVerbsAndMetadata(t *testing.T) {
	input := TransitionInput{
		ContainerID: "c-9",
		Channel:     "selfref",
		FromState:   "empty",
		ToState:     "holding-exclusive",
		Metadata:    map[string]any{"k": "v"},
	}

	installed := BuildViewInstalledEvent("exclusive", input)
	if installed.Verb != "container.view.exclusive.installed" || installed.ObjectType != "container.view" {
		t.Fatalf("unexpected installed event: %+v", installed)
	}
	if installed.FromState != "empty" || installed.ToState != "holding-exclusive" {
		t.Fatalf("expected states carried: %+v", installed)
	}

	cleared := BuildViewClearedEvent(input)
	if cleared.Verb != "container.view.cleared" {
		t.Fatalf("unexpected cleared verb: %q", cleared.Verb)
	}

	extracted := BuildPayloadExtractedEvent(input)
	if extracted.Verb != "container.payload.extracted" || extracted.ObjectType != "container.payload" {
		t.Fatalf("unexpected extracted event: %+v", extracted)
	}

	input.Err = errors.New("slot occupied")
	violation := BuildViolationEvent("borrow_shared", input)
	if violation.Verb != "container.violation" {
		t.Fatalf("unexpected violation verb: %q", violation.Verb)
	}
	if violation.Metadata["op"] != "borrow_shared" {
		t.Fatalf("expected op recorded, got %+v", violation.Metadata)
	}
	if msg, _ := violation.Metadata["error"].(string); !strings.Contains(msg, "slot occupied") {
		t.Fatalf("expected error message recorded, got %+v", violation.Metadata)
	}
}
