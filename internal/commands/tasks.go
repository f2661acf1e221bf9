package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crewsched/internal/eventbus"
	"crewsched/internal/roster"
	logx "crewsched/pkg/logx"
)

// AgendaSender broadcasts the day's agenda on demand.
type AgendaSender interface {
	SendNow(ctx context.Context) error
	// Next is the next scheduled broadcast, zero when none is scheduled.
	Next() time.Time
}

// RegisterTasks installs the task commands backed by reg. /agenda is only
// registered when agenda is non-nil.
func RegisterTasks(r *Router, reg *roster.Registry, agenda AgendaSender) {
	h := &taskHandlers{r: r, reg: reg, agenda: agenda}
	r.Register(
		Command{
			Name:        "add",
			Description: "add a task to today's schedule",
			Usage:       "/add <description> <start> <end> <priority>",
			Access:      AccessOwnerOnly,
			Handle:      h.add,
		},
		Command{
			Name:        "remove",
			Aliases:     []string{"rm", "del"},
			Description: "remove a task by description",
			Usage:       "/remove <description>",
			Access:      AccessOwnerOnly,
			Handle:      h.remove,
		},
		Command{
			Name:        "list",
			Aliases:     []string{"ls", "view"},
			Description: "show today's tasks in start order",
			Usage:       "/list",
			Access:      AccessEveryone,
			Handle:      h.list,
		},
	)
	if agenda != nil {
		r.Register(Command{
			Name:        "agenda",
			Description: "broadcast today's agenda now",
			Usage:       "/agenda",
			Access:      AccessOwnerOnly,
			Handle:      h.sendAgenda,
		})
	}
	RegisterHelp(r)
}

type taskHandlers struct {
	r      *Router
	reg    *roster.Registry
	agenda AgendaSender
}

func (h *taskHandlers) event(req *Request, t roster.Task) eventbus.TaskEvent {
	return eventbus.TaskEvent{
		ActorID:       req.FromID,
		ActorUsername: req.Username,
		ChatID:        req.Chat.ChatID,
		Description:   t.Description,
		Start:         t.Start,
		End:           t.End,
		Priority:      t.Priority,
	}
}

// add accepts quoted or unquoted descriptions: the last three arguments are
// start, end and priority, everything before them is the description.
func (h *taskHandlers) add(ctx context.Context, req *Request) error {
	n := len(req.Args)
	if n < 4 {
		return req.Reply(ctx, "Usage: /add <description> <start> <end> <priority>")
	}
	t := roster.Task{
		Description: strings.TrimSpace(strings.Join(req.Args[:n-3], " ")),
		Start:       req.Args[n-3],
		End:         req.Args[n-2],
		Priority:    req.Args[n-1],
	}
	if t.Description == "" {
		return req.Reply(ctx, "Usage: /add <description> <start> <end> <priority>")
	}

	err := h.reg.Add(t)
	ev := h.event(req, t)

	var ce *roster.ConflictError
	var te *roster.TimeError
	switch {
	case err == nil:
		h.r.publish(eventbus.TypeTaskAdded, ev)
		return req.Reply(ctx, msgAdded)
	case errors.As(err, &ce):
		ev.ConflictWith = ce.With
		ev.Err = err.Error()
		h.r.publish(eventbus.TypeTaskConflict, ev)
		return req.Reply(ctx, fmt.Sprintf(msgConflictFmt, ce.With))
	case errors.As(err, &te):
		ev.Err = err.Error()
		h.r.publish(eventbus.TypeTaskInvalid, ev)
		return req.Reply(ctx, "Error: "+te.Error())
	default:
		return fmt.Errorf("add task: %w", err)
	}
}

func (h *taskHandlers) remove(ctx context.Context, req *Request) error {
	desc := strings.TrimSpace(strings.Join(req.Args, " "))
	if desc == "" {
		return req.Reply(ctx, "Usage: /remove <description>")
	}
	t, err := h.reg.Remove(desc)
	switch {
	case err == nil:
		h.r.publish(eventbus.TypeTaskRemoved, h.event(req, t))
		return req.Reply(ctx, msgRemoved)
	case errors.Is(err, roster.ErrNotFound):
		ev := h.event(req, roster.Task{Description: desc})
		ev.Err = err.Error()
		h.r.publish(eventbus.TypeTaskNotFound, ev)
		return req.Reply(ctx, msgNotFound)
	default:
		return fmt.Errorf("remove task: %w", err)
	}
}

func (h *taskHandlers) list(ctx context.Context, req *Request) error {
	return req.Reply(ctx, FormatTasks(h.reg.Tasks()))
}

func (h *taskHandlers) sendAgenda(ctx context.Context, req *Request) error {
	if err := h.agenda.SendNow(ctx); err != nil {
		req.Logger.Warn("agenda send failed", logx.Err(err))
		return req.Reply(ctx, "Error: "+err.Error())
	}
	reply := msgAgendaSent
	if next := h.agenda.Next(); !next.IsZero() {
		reply += "\nNext scheduled: " + next.Format("Mon 15:04 MST")
	}
	return req.Reply(ctx, reply)
}

// FormatTasks renders one task per line, or the empty-day message when ok is false.
func FormatTasks(tasks []roster.Task, ok bool) string {
	if !ok || len(tasks) == 0 {
		return msgNoTasks
	}
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, t.String())
	}
	return strings.Join(lines, "\n")
}
