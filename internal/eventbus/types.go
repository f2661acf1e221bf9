package eventbus

// Event types published by crewsched.
const (
	TypeTaskAdded    = "task.added"
	TypeTaskConflict = "task.conflict"
	TypeTaskRemoved  = "task.removed"
	TypeTaskNotFound = "task.not_found"
	TypeTaskInvalid  = "task.invalid"
	TypeAgendaSent   = "agenda.sent"
)

// TaskEvent is the Data payload of task.* events.
type TaskEvent struct {
	ActorID       int64
	ActorUsername string
	ChatID        int64

	Description string
	Start       string
	End         string
	Priority    string

	// ConflictWith is set for task.conflict.
	ConflictWith string
	// Err is the user-facing error text for failed operations.
	Err string
}

// AgendaEvent is the Data payload of agenda.sent.
type AgendaEvent struct {
	ChatID int64
	Tasks  int
	Err    string
}
