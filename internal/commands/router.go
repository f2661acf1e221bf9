package commands

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"crewsched/internal/eventbus"
	kit "crewsched/internal/transport"
	logx "crewsched/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
}

// Request is one parsed command invocation.
type Request struct {
	Message  *kit.Message
	Chat     kit.ChatTarget
	FromID   int64
	Username string
	Command  string
	Args     []string
	ReqID    string

	Adapter kit.Adapter
	Logger  logx.Logger
}

// Reply sends text back to the chat the command came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}

// Router maps "/word" messages to commands and runs them through the
// middleware chain.
type Router struct {
	log     logx.Logger
	adapter kit.Adapter
	bus     eventbus.Bus
	limiter *Limiter

	mu      sync.RWMutex
	cmds    map[string]*Command
	alias   map[string]*Command
	order   []string
	owners  []int64
	timeout time.Duration
}

type RouterConfig struct {
	Owners     []int64
	RatePerMin int
	// Timeout bounds each handler unless the command sets its own.
	Timeout time.Duration
}

func NewRouter(log logx.Logger, adapter kit.Adapter, bus eventbus.Bus, cfg RouterConfig) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		log:     log,
		adapter: adapter,
		bus:     bus,
		limiter: NewLimiter(cfg.RatePerMin),
		cmds:    map[string]*Command{},
		alias:   map[string]*Command{},
		owners:  append([]int64(nil), cfg.Owners...),
		timeout: cfg.Timeout,
	}
}

// Register adds commands. A later registration with the same name wins.
func (r *Router) Register(cmds ...Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cmds {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || c.Handle == nil {
			continue
		}
		cc := c
		cc.Name = name
		if _, exists := r.cmds[name]; !exists {
			r.order = append(r.order, name)
		}
		r.cmds[name] = &cc
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a != "" && !strings.Contains(a, " ") {
				r.alias[a] = &cc
			}
		}
	}
}

// Apply updates the hot-reloadable settings.
func (r *Router) Apply(cfg RouterConfig) {
	r.mu.Lock()
	r.owners = append([]int64(nil), cfg.Owners...)
	r.timeout = cfg.Timeout
	r.mu.Unlock()
	r.limiter.SetRate(cfg.RatePerMin)
}

func (r *Router) ownersSnapshot() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]int64(nil), r.owners...)
}

func (r *Router) lookup(word string) (*Command, time.Duration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cmds[word]
	if !ok {
		c, ok = r.alias[word]
	}
	return c, r.timeout, ok
}

// Commands returns registered commands in registration order.
func (r *Router) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, *r.cmds[n])
	}
	return out
}

// Menu builds the platform command list, sorted by name.
func (r *Router) Menu() []kit.BotCommand {
	cmds := r.Commands()
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	out := make([]kit.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, kit.BotCommand{Command: c.Name, Description: c.Description})
	}
	return out
}

// PublishMenu pushes Menu to adapters that support it.
func (r *Router) PublishMenu(ctx context.Context) {
	up, ok := r.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := up.UpdateMenuCommands(ctx, r.Menu()); err != nil {
		r.log.Warn("menu update failed", logx.Err(err))
	}
}

// DispatchLoop handles updates one at a time so commands from a chat apply
// in arrival order.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	r.log.Info("command dispatcher started")
	defer r.log.Info("command dispatcher stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.Dispatch(ctx, up)
		}
	}
}

// Dispatch routes a single update. Non-command messages are ignored.
func (r *Router) Dispatch(ctx context.Context, up kit.Update) {
	if up.Kind != kit.UpdateMessage || up.Message == nil {
		return
	}
	msg := up.Message
	parts := tokenizeCommandLine(msg.Text)
	if len(parts) == 0 {
		return
	}
	word, ok := commandWord(parts[0])
	if !ok {
		return
	}

	cmd, defTimeout, found := r.lookup(word)
	if !found {
		_, _ = r.adapter.SendText(ctx, msg.Target(), msgUnknownCommand, nil)
		return
	}

	rid := newReqID()
	req := &Request{
		Message:  msg,
		Chat:     msg.Target(),
		FromID:   msg.FromID,
		Username: msg.FromUsername,
		Command:  cmd.Name,
		Args:     parts[1:],
		ReqID:    rid,
		Adapter:  r.adapter,
		Logger: r.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Name),
		),
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = defTimeout
	}
	mws := []Middleware{
		MWPanicRecover(r.log),
		MWRequestLog(r.log),
		MWRateLimit(r.limiter),
	}
	if cmd.Access == AccessOwnerOnly {
		mws = append(mws, MWOwnerOnly(r.ownersSnapshot))
	}
	mws = append(mws, MWTimeout(timeout))

	_ = Chain(cmd.Handle, mws...)(ctx, req)
}

func (r *Router) publish(typ string, data any) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
