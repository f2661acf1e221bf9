package commands

const (
	msgAdded          = "Task added successfully. No conflicts."
	msgConflictFmt    = "Error: Task conflicts with existing task %q"
	msgRemoved        = "Task removed successfully."
	msgNotFound       = "Error: Task not found."
	msgNoTasks        = "No tasks scheduled for the day."
	msgUnknownCommand = "Unknown command. Try /help"
	msgUnauthorized   = "unauthorized"
	msgRateLimited    = "Too many requests, slow down."
	msgAgendaSent     = "Agenda sent."
)
