// Package console is a line-oriented transport for running crewsched locally.
// Every input line becomes a message from one fixed operator; replies are
// written to the output stream.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	rtsup "crewsched/internal/runtime/supervisor"
	kit "crewsched/internal/transport"
	logx "crewsched/pkg/logx"
)

// OperatorID is the sender id of console messages.
const OperatorID int64 = 0

// ChatID is the chat id replies are addressed to.
const ChatID int64 = 0

type Config struct {
	In  io.Reader // default os.Stdin
	Out io.Writer // default os.Stdout

	// Prompt is written before each read. Empty disables it.
	Prompt string
}

type Adapter struct {
	cfg Config
	log logx.Logger

	outMu sync.Mutex
	seq   atomic.Int64

	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor

	doneOnce sync.Once
	done     chan struct{}
}

func New(cfg Config, log logx.Logger) *Adapter {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log, done: make(chan struct{})}
}

// InputDone is closed once the input stream is exhausted and every line has
// been handed to the router. Cancellation does not close it.
func (a *Adapter) InputDone() <-chan struct{} { return a.done }

func (a *Adapter) endInput() { a.doneOnce.Do(func() { close(a.done) }) }

func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}
	a.running = true
	a.sup = rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "console"))),
		rtsup.WithCancelOnError(false),
	)
	a.sup.Go("console.read", func(c context.Context) error {
		return a.readLoop(c, out)
	})
	return nil
}

func (a *Adapter) readLoop(ctx context.Context, out chan<- kit.Update) error {
	sc := bufio.NewScanner(a.cfg.In)
	a.prompt()
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			a.prompt()
			continue
		}
		// Bare words are treated as commands.
		if !strings.HasPrefix(line, "/") {
			line = "/" + line
		}
		up := kit.Update{
			Kind: kit.UpdateMessage,
			Message: &kit.Message{
				ID:           int(a.seq.Add(1)),
				ChatID:       ChatID,
				FromID:       OperatorID,
				FromUsername: "operator",
				Text:         line,
			},
		}
		select {
		case <-ctx.Done():
			return nil
		case out <- up:
		}
	}
	defer a.endInput()
	if err := sc.Err(); err != nil {
		return fmt.Errorf("console read: %w", err)
	}
	a.log.Debug("console input closed")
	return nil
}

func (a *Adapter) prompt() {
	if a.cfg.Prompt == "" {
		return
	}
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = io.WriteString(a.cfg.Out, a.cfg.Prompt)
}

// Stop cancels the reader. A read blocked on stdin is abandoned, not interrupted.
func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	a.running = false
	a.runMu.Unlock()
	if sup == nil {
		return nil
	}
	sup.Cancel()
	if c, ok := a.cfg.In.(io.Closer); ok && a.cfg.In != os.Stdin {
		_ = c.Close()
	}
	return nil
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	a.outMu.Lock()
	_, err := fmt.Fprintln(a.cfg.Out, text)
	if err == nil && a.cfg.Prompt != "" {
		_, err = io.WriteString(a.cfg.Out, a.cfg.Prompt)
	}
	a.outMu.Unlock()
	if err != nil {
		return kit.MessageRef{}, err
	}
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: int(a.seq.Add(1))}, nil
}
