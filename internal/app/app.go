package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"crewsched/internal/agenda"
	"crewsched/internal/commands"
	"crewsched/internal/config"
	"crewsched/internal/eventbus"
	"crewsched/internal/roster"
	rtsup "crewsched/internal/runtime/supervisor"
	"crewsched/internal/storage"
	kit "crewsched/internal/transport"
	"crewsched/internal/transport/console"
	"crewsched/internal/transport/telegram"
	logx "crewsched/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	reg     *roster.Registry
	adapter kit.Adapter
	router  *commands.Router
	agenda  *agenda.Service

	updates chan kit.Update
}

type Option func(*options)

type options struct {
	in  io.Reader
	out io.Writer
}

// WithConsoleIO replaces stdin/stdout for the console transport.
func WithConsoleIO(in io.Reader, out io.Writer) Option {
	return func(o *options) {
		o.in = in
		o.out = out
	}
}

func New(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	reg := roster.New(roster.WithTimeMode(mapTimeMode(cfg)))
	bus := eventbus.New()

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		store = st
		log.Info("audit storage enabled", logx.String("driver", sc.Driver))
	}

	ad, err := newAdapter(cfg, o, log)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	rc, err := mapRouterConfig(cfg)
	if err != nil {
		return nil, err
	}
	router := commands.NewRouter(log.With(logx.String("comp", "commands")), ad, bus, rc)

	ag := agenda.New(mapAgendaConfig(cfg), reg, ad, bus, log.With(logx.String("comp", "agenda")))
	var sender commands.AgendaSender
	if cfg.Agenda != nil {
		sender = ag
	}
	commands.RegisterTasks(router, reg, sender)
	if store != nil {
		commands.RegisterHistory(router, store)
	}

	log.Info("registry ready", logx.String("time_mode", reg.Mode().String()), logx.String("transport", config.TransportDriver(cfg)))

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		reg:     reg,
		adapter: ad,
		router:  router,
		agenda:  ag,
		updates: make(chan kit.Update, 256),
	}, nil
}

func newAdapter(cfg *config.Config, o options, log logx.Logger) (kit.Adapter, error) {
	switch config.TransportDriver(cfg) {
	case "telegram":
		pollTimeout, err := config.ParseDurationOrDefault("transport.telegram.poll_timeout", cfg.Transport.Telegram.PollTimeout, 10*time.Second)
		if err != nil {
			return nil, err
		}
		return telegram.New(telegram.Config{
			Token:       cfg.Transport.Telegram.Token,
			PollTimeout: pollTimeout,
		}, log.With(logx.String("comp", "telegram")))
	default:
		prompt := ""
		if o.in == nil {
			prompt = "> "
		}
		return console.New(console.Config{In: o.in, Out: o.out, Prompt: prompt}, log.With(logx.String("comp", "console"))), nil
	}
}

// validate runs the checks that need packages config cannot import.
func validate(cfg *config.Config) error {
	if a := cfg.Agenda; a != nil && a.Enabled {
		if _, err := agenda.ParseAt(a.At); err != nil {
			return fmt.Errorf("agenda.at: %w", err)
		}
	}
	if _, err := mapRouterConfig(cfg); err != nil {
		return err
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	return nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	runCtx := a.sup.Context()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validate(cfg)
	})

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	a.sup.Go("commands.dispatch", func(c context.Context) error {
		err := a.router.DispatchLoop(c, a.updates)
		if err == nil && c.Err() == nil {
			// updates was closed: the input ran out and every command has run.
			a.log.Info("transport input finished; shutting down")
			a.sup.Cancel()
		}
		return err
	})
	if ie, ok := a.adapter.(kit.InputEnder); ok {
		a.sup.Go0("transport.input", func(c context.Context) {
			select {
			case <-c.Done():
			case <-ie.InputDone():
				if c.Err() == nil {
					close(a.updates)
				}
			}
		})
	}
	a.sup.Go0("commands.menu", a.router.PublishMenu)

	if err := a.agenda.Start(runCtx); err != nil {
		return err
	}

	a.sup.Go0("eventbus.drop_report", func(c context.Context) {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		var last uint64
		for {
			select {
			case <-c.Done():
				reportBusDrops(a.log, a.bus, &last)
				return
			case <-ticker.C:
				reportBusDrops(a.log, a.bus, &last)
			}
		}
	})

	if a.store != nil {
		events, unsub := a.bus.Subscribe(512, "task.", "agenda.")
		auditLog := a.log.With(logx.String("comp", "audit"))
		a.sup.Go0("audit.record", func(c context.Context) {
			defer unsub()
			recordAudit(c, events, a.store, auditLog)
		})
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	sdNotify(a.log, daemon.SdNotifyReady)
	a.log.Info("app started")
	return nil
}

// applyConfig hot-applies logging, command limits and the agenda. Transport,
// storage and schedule.time_mode only change on restart.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs, restart := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if len(restart) > 0 {
		a.log.Warn("config changes require a restart to take effect", logx.String("sections", strings.Join(restart, ",")))
	}

	a.logs.Apply(mapLogConfig(newCfg))

	if rc, err := mapRouterConfig(newCfg); err != nil {
		a.log.Warn("invalid command config; keeping previous", logx.Err(err))
	} else {
		a.router.Apply(rc)
	}

	if err := a.agenda.Apply(mapAgendaConfig(newCfg)); err != nil {
		a.log.Warn("agenda reschedule failed", logx.Err(err))
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	sdNotify(a.log, daemon.SdNotifyStopping)
	a.sup.Cancel()

	var errs []error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("agenda", 2*time.Second, func(c context.Context) error { a.agenda.Stop(c); return nil })
	step("adapter", 3*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("supervisor", 2*time.Second, func(c context.Context) error {
		err := a.sup.Wait(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	step("storage", 1*time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped", logx.Int("tasks", a.reg.Len()))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}
