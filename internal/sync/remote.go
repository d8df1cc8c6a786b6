// Package sync keeps the remote authority eventually consistent with the
// local store without ever blocking a local operation. Local data is the
// durable source of truth for the current session; remote failures degrade
// silently to "local state is truth".
package sync

import "context"

// Op identifies which sync operation a result describes.
type Op string

const (
	OpPull        Op = "pull"
	OpPush        Op = "push"
	OpPushConvo   Op = "push_conversation"
	OpDelete      Op = "delete"
	OpDeleteConvo Op = "delete_conversation"
)

// Result is the typed outcome of one sync operation, surfaced to the
// observability hook instead of bare log lines. Failures are inspectable
// without changing user-facing behavior.
type Result struct {
	Op  Op
	OK  bool
	Err error
}

// RemoteStore is the opaque per-user row store the engine talks to: one row
// per user id for habit data and one for conversation state.
type RemoteStore interface {
	// FetchHabitData returns the stored payload and whether a row exists.
	FetchHabitData(ctx context.Context, userID string) ([]byte, bool, error)
	UpsertHabitData(ctx context.Context, userID string, data []byte) error
	DeleteHabitData(ctx context.Context, userID string) error

	FetchConversation(ctx context.Context, userID string) ([]byte, bool, error)
	UpsertConversation(ctx context.Context, userID string, data []byte) error
	DeleteConversation(ctx context.Context, userID string) error

	Close() error
}
