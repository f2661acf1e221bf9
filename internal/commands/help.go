package commands

import (
	"context"
	"strings"
)

// RegisterHelp installs /help and /start. Both list every registered command.
func RegisterHelp(r *Router) {
	handle := func(ctx context.Context, req *Request) error {
		return req.Reply(ctx, helpText(r.Commands()))
	}
	r.Register(
		Command{Name: "help", Aliases: []string{"h"}, Description: "show available commands", Usage: "/help", Handle: handle},
		Command{Name: "start", Description: "show available commands", Usage: "/start", Handle: handle},
	)
}

func helpText(cmds []Command) string {
	lines := []string{"Crew daily schedule", ""}
	for _, c := range cmds {
		if c.Name == "start" {
			continue
		}
		usage := c.Usage
		if usage == "" {
			usage = "/" + c.Name
		}
		line := usage
		if c.Description != "" {
			line += " - " + c.Description
		}
		if c.Access == AccessOwnerOnly {
			line += " (owner)"
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", `Quote descriptions with spaces: /add "Team Meeting" 09:00 10:00 Medium`)
	return strings.Join(lines, "\n")
}
