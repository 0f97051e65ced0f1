package selfref

import (
	"errors"
	"testing"

	"github.com/goliatone/go-selfref/pkg/activity"
)

type recordedTransition struct {
	containerID string
	op          string
	from, to    State
	err         error
}

type fakeRecorder struct {
	transitions []recordedTransition
}

func (r *fakeRecorder) RecordTransition(containerID, op string, from, to State, err error) {
	r.transitions = append(r.transitions, recordedTransition{
		containerID: containerID,
		op:          op,
		from:        from,
		to:          to,
		err:         err,
	})
}

func TestContainerReadsFirstCharacter(t *testing.T) {
	container, err := NewRefContainer("hello")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	view, err := container.BorrowShared()
	if err != nil {
		t.Fatalf("borrow shared: %v", err)
	}
	text, err := view.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if text[0] != 'h' {
		t.Fatalf("unexpected first character %q", text[0])
	}
	if container.State() != StateHoldingShared {
		t.Fatalf("unexpected state %s", container.State())
	}

	container.Clear()
	payload, err := container.IntoInner()
	if err != nil {
		t.Fatalf("into inner: %v", err)
	}
	if payload != "hello" {
		t.Fatalf("unexpected payload %q", payload)
	}
}

func TestContainerStateMachine(t *testing.T) {
	container, err := NewRefContainer(1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if container.State() != StateEmpty {
		t.Fatalf("expected empty start, got %s", container.State())
	}

	if _, err := container.BorrowShared(); err != nil {
		t.Fatalf("borrow shared: %v", err)
	}
	if container.State() != StateHoldingShared {
		t.Fatalf("expected holding-shared, got %s", container.State())
	}
	container.Clear()
	if container.State() != StateEmpty {
		t.Fatalf("expected empty after clear, got %s", container.State())
	}

	mut, err := container.BorrowExclusive()
	if err != nil {
		t.Fatalf("borrow exclusive: %v", err)
	}
	if container.State() != StateHoldingExclusive {
		t.Fatalf("expected holding-exclusive, got %s", container.State())
	}
	if err := mut.Set(2); err != nil {
		t.Fatalf("set: %v", err)
	}
	container.Clear()

	payload, err := container.IntoInner()
	if err != nil {
		t.Fatalf("into inner: %v", err)
	}
	if payload != 2 {
		t.Fatalf("expected mutation to persist, got %d", payload)
	}
}

func TestContainerRejectsSecondBorrow(t *testing.T) {
	container, err := NewRefContainer("x")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := container.BorrowExclusive(); err != nil {
		t.Fatalf("borrow exclusive: %v", err)
	}

	_, err = container.BorrowExclusive()
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected *StateError, got %T: %v", err, err)
	}
	if stateErr.Op != "borrow_exclusive" || stateErr.State != StateHoldingExclusive {
		t.Fatalf("unexpected state error: %+v", stateErr)
	}
	if _, err := container.BorrowShared(); err == nil {
		t.Fatalf("expected shared borrow to be rejected while holding")
	}
	if container.State() != StateHoldingExclusive {
		t.Fatalf("expected rejected operations to leave state alone, got %s", container.State())
	}
}

func TestContainerRejectsExtractionWithLiveView(t *testing.T) {
	container, err := NewRefContainer("x")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := container.BorrowShared(); err != nil {
		t.Fatalf("borrow shared: %v", err)
	}

	_, err = container.IntoInner()
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected *StateError, got %T: %v", err, err)
	}
	if stateErr.Op != "into_inner" {
		t.Fatalf("unexpected op %q", stateErr.Op)
	}
	if container.State() != StateHoldingShared {
		t.Fatalf("expected state preserved, got %s", container.State())
	}
}

func TestClearRetiresOutstandingViews(t *testing.T) {
	container, err := NewRefContainer("hello")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	view, err := container.BorrowShared()
	if err != nil {
		t.Fatalf("borrow shared: %v", err)
	}
	container.Clear()

	if _, err := view.Value(); !errors.Is(err, ErrScopeClosed) {
		t.Fatalf("expected escaped view to be dead, got %v", err)
	}

	// A fresh borrow after Clear works and its view is independent.
	fresh, err := container.BorrowShared()
	if err != nil {
		t.Fatalf("borrow after clear: %v", err)
	}
	if _, err := fresh.Value(); err != nil {
		t.Fatalf("fresh view read: %v", err)
	}
}

func TestClearOnEmptyIsNoOp(t *testing.T) {
	container, err := NewRefContainer(0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	container.Clear()
	snap := container.Inspect()
	if snap.Clears != 0 {
		t.Fatalf("expected no clear recorded for an empty slot, got %d", snap.Clears)
	}
	if snap.State != StateEmpty {
		t.Fatalf("expected empty state, got %s", snap.State)
	}
}

func TestContainerConsumedAfterIntoInner(t *testing.T) {
	container, err := NewRefContainer(1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := container.IntoInner(); err != nil {
		t.Fatalf("into inner: %v", err)
	}

	if _, err := container.BorrowShared(); !errors.Is(err, ErrConsumed) {
		t.Fatalf("expected ErrConsumed, got %v", err)
	}
	if _, err := container.BorrowExclusive(); !errors.Is(err, ErrConsumed) {
		t.Fatalf("expected ErrConsumed, got %v", err)
	}
	if _, err := container.IntoInner(); !errors.Is(err, ErrConsumed) {
		t.Fatalf("expected ErrConsumed, got %v", err)
	}
	if !container.Inspect().Consumed {
		t.Fatalf("expected snapshot to report consumption")
	}
}

func TestWithSharedClearsOnReturn(t *testing.T) {
	container, err := NewRefContainer("hi")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var escaped Ref[string]
	err = container.WithShared(func(view Ref[string]) error {
		escaped = view
		got, err := view.Value()
		if err != nil {
			return err
		}
		if got != "hi" {
			t.Fatalf("unexpected value %q", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with shared: %v", err)
	}
	if container.State() != StateEmpty {
		t.Fatalf("expected slot cleared after the call, got %s", container.State())
	}
	if _, err := escaped.Value(); !errors.Is(err, ErrScopeClosed) {
		t.Fatalf("expected escaped view to be dead, got %v", err)
	}
}

func TestWithExclusivePropagatesErrorAndClears(t *testing.T) {
	container, err := NewRefContainer(1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	errBoom := errors.New("boom")
	err = container.WithExclusive(func(view RefMut[int]) error {
		if err := view.Set(9); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if container.State() != StateEmpty {
		t.Fatalf("expected slot cleared despite error, got %s", container.State())
	}

	payload, err := container.IntoInner()
	if err != nil {
		t.Fatalf("into inner: %v", err)
	}
	if payload != 9 {
		t.Fatalf("expected mutation kept, got %d", payload)
	}
}

func TestInspectCountsBorrowsAndClears(t *testing.T) {
	container, err := NewRefContainer(0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	start := container.Inspect()
	if _, err := container.BorrowShared(); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	container.Clear()
	if _, err := container.BorrowExclusive(); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	container.Clear()

	snap := container.Inspect()
	if snap.Borrows != 2 || snap.Clears != 2 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if snap.LoanGeneration <= start.LoanGeneration {
		t.Fatalf("expected loan generation to advance, got %d", snap.LoanGeneration)
	}
}

func TestContainerReportsTransitions(t *testing.T) {
	recorder := &fakeRecorder{}
	var logged []TransitionLogEvent
	container, err := NewRefContainer("x",
		WithContainerID("c-1"),
		WithRecorder(recorder),
		WithTransitionLogger(TransitionLoggerFunc(func(event TransitionLogEvent) {
			logged = append(logged, event)
		})),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := container.BorrowShared(); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if _, err := container.BorrowShared(); err == nil {
		t.Fatalf("expected rejection")
	}
	container.Clear()

	if len(recorder.transitions) != 3 {
		t.Fatalf("expected 3 recorded transitions, got %d", len(recorder.transitions))
	}
	applied := recorder.transitions[0]
	if applied.containerID != "c-1" || applied.op != "borrow_shared" || applied.from != StateEmpty || applied.to != StateHoldingShared || applied.err != nil {
		t.Fatalf("unexpected applied record: %+v", applied)
	}
	rejected := recorder.transitions[1]
	if rejected.err == nil || rejected.from != StateHoldingShared || rejected.to != StateHoldingShared {
		t.Fatalf("unexpected rejected record: %+v", rejected)
	}
	cleared := recorder.transitions[2]
	if cleared.op != "clear" || cleared.to != StateEmpty {
		t.Fatalf("unexpected clear record: %+v", cleared)
	}

	if len(logged) != 3 {
		t.Fatalf("expected 3 log events, got %d", len(logged))
	}
	if logged[1].Err == nil {
		t.Fatalf("expected rejection to be logged with its error")
	}
}

func TestContainerEmitsLifecycleEvents(t *testing.T) {
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})

	container, err := NewRefContainer("x",
		WithContainerID("c-2"),
		WithActivityEmitter(emitter),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := container.BorrowShared(); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if _, err := container.BorrowExclusive(); err == nil {
		t.Fatalf("expected rejection")
	}
	container.Clear()
	if _, err := container.IntoInner(); err != nil {
		t.Fatalf("into inner: %v", err)
	}

	verbs := make([]string, 0, len(capture.Events))
	for _, event := range capture.Events {
		verbs = append(verbs, event.Verb)
		if event.ContainerID != "c-2" {
			t.Fatalf("unexpected container id %q", event.ContainerID)
		}
		if event.Channel != "selfref" {
			t.Fatalf("expected default channel, got %q", event.Channel)
		}
	}
	want := []string{
		"container.view.shared.installed",
		"container.violation",
		"container.view.cleared",
		"container.payload.extracted",
	}
	if len(verbs) != len(want) {
		t.Fatalf("unexpected verbs %v", verbs)
	}
	for i := range want {
		if verbs[i] != want[i] {
			t.Fatalf("verb %d: want %q, got %q", i, want[i], verbs[i])
		}
	}
}

func TestNewRejectsInvalidCapability(t *testing.T) {
	broken := Capability[int, Ref[int], Ref[int]]{
		Shared:          NewRef[int],
		Exclusive:       NewRef[int],
		SharedFamily:    RefFamily[int](),
		ExclusiveFamily: RefFamily[int](),
	}
	if _, err := New(1, broken); err == nil {
		t.Fatalf("expected invalid capability to be rejected")
	}
}

func TestContainerWithOwnedCapability(t *testing.T) {
	container, err := New("snapshot", OwnedCapability[string]())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	view, err := container.BorrowShared()
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	container.Clear()
	// Owned views are scope-independent and survive Clear.
	if view.Value() != "snapshot" {
		t.Fatalf("unexpected snapshot %q", view.Value())
	}
}

func TestContainerWithOptionCapability(t *testing.T) {
	value := 3
	payload := &value
	container, err := New(payload, OptionCapability(RefCapability[int]()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	view, err := container.BorrowShared()
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	ref, ok := view.Get()
	if !ok {
		t.Fatalf("expected present view")
	}
	got, err := ref.Value()
	if err != nil || got != 3 {
		t.Fatalf("unexpected read: %d, %v", got, err)
	}
	container.Clear()
	if _, err := ref.Value(); !errors.Is(err, ErrScopeClosed) {
		t.Fatalf("expected wrapped view to die with the loan, got %v", err)
	}

	empty, err := New[*int](nil, OptionCapability(RefCapability[int]()))
	if err != nil {
		t.Fatalf("new empty: %v", err)
	}
	absent, err := empty.BorrowShared()
	if err != nil {
		t.Fatalf("borrow absent: %v", err)
	}
	if absent.IsSome() {
		t.Fatalf("expected absent view for nil payload")
	}
}
