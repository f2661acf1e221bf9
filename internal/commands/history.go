package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"crewsched/internal/storage"
)

const (
	defaultHistory = 10
	maxHistory     = 50
)

// AuditSource reads back recorded schedule operations.
type AuditSource interface {
	RecentAudit(ctx context.Context, n int) ([]storage.AuditEntry, error)
}

// RegisterHistory installs /history. Call it only when an audit store exists.
func RegisterHistory(r *Router, src AuditSource) {
	r.Register(Command{
		Name:        "history",
		Description: "show recent schedule changes",
		Usage:       "/history [n]",
		Access:      AccessOwnerOnly,
		Handle: func(ctx context.Context, req *Request) error {
			n := defaultHistory
			if len(req.Args) > 0 {
				v, err := strconv.Atoi(req.Args[0])
				if err != nil || v <= 0 {
					return req.Reply(ctx, "Usage: /history [n]")
				}
				n = min(v, maxHistory)
			}
			entries, err := src.RecentAudit(ctx, n)
			if err != nil {
				return fmt.Errorf("read audit: %w", err)
			}
			return req.Reply(ctx, FormatHistory(entries))
		},
	})
}

// FormatHistory renders audit entries newest first, one per line.
func FormatHistory(entries []storage.AuditEntry) string {
	if len(entries) == 0 {
		return "No history recorded."
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		var b strings.Builder
		b.WriteString(e.At.Local().Format("15:04:05"))
		b.WriteString(" ")
		b.WriteString(e.Action)
		if e.Target != "" {
			b.WriteString(" ")
			b.WriteString(strconv.Quote(e.Target))
		}
		if e.Detail != "" {
			b.WriteString(" ")
			b.WriteString(e.Detail)
		}
		if !e.OK && e.Error != "" {
			b.WriteString(" (failed: ")
			b.WriteString(e.Error)
			b.WriteString(")")
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
