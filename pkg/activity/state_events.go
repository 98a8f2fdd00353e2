package activity

import (
	"strings"
	"time"
)

// Verbs emitted for state tree mutations.
const (
	VerbStateUpdated    = "state.updated"
	VerbStateDeleted    = "state.deleted"
	VerbStateRestored   = "state.restored"
	VerbStateRolledBack = "state.rolled_back"
)

// ObjectTypeState is the object type of every state event.
const ObjectTypeState = "state"

// StateEventInput describes the common fields for state tree events.
type StateEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Path           string
	OldValue       any
	NewValue       any
	TxID           string
	OccurredAt     time.Time
}

// BuildStateUpdatedEvent describes a write to a path.
func BuildStateUpdatedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbStateUpdated, input)
}

// BuildStateDeletedEvent describes a removed path.
func BuildStateDeletedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbStateDeleted, input)
}

// BuildStateRestoredEvent describes a tree replaced from a snapshot.
func BuildStateRestoredEvent(input StateEventInput) Event {
	return buildStateEvent(VerbStateRestored, input)
}

// BuildStateRolledBackEvent describes an undone change or an aborted
// transaction.
func BuildStateRolledBackEvent(input StateEventInput) Event {
	return buildStateEvent(VerbStateRolledBack, input)
}

func buildStateEvent(verb string, input StateEventInput) Event {
	metadata := cloneMap(input.Metadata)
	path := strings.TrimSpace(input.Path)
	if path != "" {
		metadata = ensureMetadata(metadata)
		metadata["path"] = path
	}
	if txID := strings.TrimSpace(input.TxID); txID != "" {
		metadata = ensureMetadata(metadata)
		metadata["tx_id"] = txID
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}

	var recipients []string
	if len(input.Recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = path
	}
	if objectID == "" {
		// root
		objectID = "."
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     ObjectTypeState,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
