package app

import (
	"context"
	"strconv"
	"time"

	"crewsched/internal/eventbus"
	"crewsched/internal/storage"
	logx "crewsched/pkg/logx"
)

// auditEntry maps a bus event to an audit row. ok is false for events that
// are not audited.
func auditEntry(e eventbus.Event) (storage.AuditEntry, bool) {
	switch d := e.Data.(type) {
	case eventbus.TaskEvent:
		detail := ""
		if d.Start != "" || d.End != "" {
			detail = d.Start + "-" + d.End
			if d.Priority != "" {
				detail += " " + d.Priority
			}
		}
		if d.ConflictWith != "" {
			detail += " conflicts with " + strconv.Quote(d.ConflictWith)
		}
		return storage.AuditEntry{
			At:            e.Time,
			ActorID:       d.ActorID,
			ActorUsername: d.ActorUsername,
			ChatID:        d.ChatID,
			Action:        e.Type,
			Target:        d.Description,
			Detail:        detail,
			OK:            d.Err == "",
			Error:         d.Err,
		}, true
	case eventbus.AgendaEvent:
		return storage.AuditEntry{
			At:     e.Time,
			ChatID: d.ChatID,
			Action: e.Type,
			Target: "agenda",
			Detail: strconv.Itoa(d.Tasks) + " tasks",
			OK:     d.Err == "",
			Error:  d.Err,
		}, true
	default:
		return storage.AuditEntry{}, false
	}
}

// recordAudit persists task and agenda events until ctx ends or events closes.
// Events already buffered when ctx ends are still written.
func recordAudit(ctx context.Context, events <-chan eventbus.Event, store storage.Store, log logx.Logger) {
	write := func(e eventbus.Event) {
		entry, ok := auditEntry(e)
		if !ok {
			return
		}
		wctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := store.AppendAudit(wctx, entry); err != nil {
			log.Warn("audit append failed", logx.String("action", entry.Action), logx.Err(err))
		}
	}
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e, ok := <-events:
					if !ok {
						return
					}
					write(e)
				default:
					return
				}
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			write(e)
		}
	}
}

// reportBusDrops warns when subscribers missed events since the last call.
// Missed task events mean missing audit rows.
func reportBusDrops(log logx.Logger, bus eventbus.Bus, last *uint64) {
	n := bus.Dropped()
	if n <= *last {
		return
	}
	log.Warn("events dropped (subscriber full)", logx.Uint64("count", n-*last), logx.Uint64("total", n))
	*last = n
}
