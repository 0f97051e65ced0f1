package activity

import (
	"strings"
	"time"
)

// TransitionInput describes the common fields for container lifecycle events.
type TransitionInput struct {
	ContainerID string
	Channel     string
	FromState   string
	ToState     string
	Err         error
	Metadata    map[string]any
	OccurredAt  time.Time
}

// BuildViewInstalledEvent constructs a normalized event for a borrow that
// installed a view in the container's slot.
func BuildViewInstalledEvent(kind string, input TransitionInput) Event {
	verb := "container.view.installed"
	if kind != "" {
		verb = "container.view." + kind + ".installed"
	}
	return buildContainerEvent(verb, "container.view", input)
}

// BuildViewClearedEvent constructs a normalized event for a cleared slot.
func BuildViewClearedEvent(input TransitionInput) Event {
	return buildContainerEvent("container.view.cleared", "container.view", input)
}

// BuildPayloadExtractedEvent constructs a normalized event for payload
// extraction via IntoInner.
func BuildPayloadExtractedEvent(input TransitionInput) Event {
	return buildContainerEvent("container.payload.extracted", "container.payload", input)
}

// BuildViolationEvent constructs a normalized event for a rejected
// structural transition.
func BuildViolationEvent(op string, input TransitionInput) Event {
	event := buildContainerEvent("container.violation", "container", input)
	if op != "" {
		event.Metadata = ensureMetadata(event.Metadata)
		event.Metadata["op"] = op
	}
	return event
}

func buildContainerEvent(verb, objectType string, input TransitionInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	return Event{
		Verb:        verb,
		ContainerID: strings.TrimSpace(input.ContainerID),
		ObjectType:  objectType,
		Channel:     strings.TrimSpace(input.Channel),
		FromState:   strings.TrimSpace(input.FromState),
		ToState:     strings.TrimSpace(input.ToState),
		Metadata:    metadata,
		OccurredAt:  input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
