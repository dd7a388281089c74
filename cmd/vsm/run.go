package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/collabora/vsm/internal/audit"
	"github.com/collabora/vsm/internal/config"
	"github.com/collabora/vsm/internal/dashboardui"
	"github.com/collabora/vsm/internal/digest"
	"github.com/collabora/vsm/internal/ipc"
	"github.com/collabora/vsm/internal/notify"
	"github.com/collabora/vsm/internal/replay"
	"github.com/collabora/vsm/internal/rulesdoc"
	"github.com/collabora/vsm/internal/signaldict"
	"github.com/collabora/vsm/internal/trace"
	"github.com/collabora/vsm/internal/tracelog"
	"github.com/collabora/vsm/internal/vsmengine"
	"github.com/collabora/vsm/internal/vsmvalue"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the signal manager against a live or replayed ingress stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "vsm.yaml", "path to engine config file")
	return cmd
}

func runEngine(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	dict, err := signaldict.Load(cfg.SignalNumbersPath)
	if err != nil {
		return fmt.Errorf("vsm: load signal dictionary: %w", err)
	}

	rulesData, err := os.ReadFile(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("vsm: read rules: %w", err)
	}
	tree, err := rulesdoc.Compile(rulesData, dict)
	if err != nil {
		return fmt.Errorf("vsm: compile rules: %w", err)
	}

	logFile, err := tracelog.Open(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("vsm: open log: %w", err)
	}
	defer logFile.Close()

	var replayEvents []replay.Event
	if cfg.Replay.Enabled {
		f, err := os.Open(cfg.Replay.TraceLogPath)
		if err != nil {
			return fmt.Errorf("vsm: open replay trace log: %w", err)
		}
		loaded, err := replay.Load(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("vsm: load replay trace log: %w", err)
		}
		replayEvents = replay.FilterIngress(loaded, dict.Has)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nreceived %s, shutting down\n", sig)
		cancel()
	}()

	ingress, egress, err := buildTransport(cfg.Ingress)
	if err != nil {
		return err
	}

	opts := vsmengine.Options{
		Dict:    dict,
		Tree:    tree,
		Log:     logFile,
		Ingress: ingress,
		Egress:  egress,
		Replay:  replayEvents,
		Out:     cmd.OutOrStdout(),
	}

	if cfg.Audit.Enabled {
		trail, err := audit.Open(cfg.Audit.Driver, cfg.Audit.DSN)
		if err != nil {
			return fmt.Errorf("vsm: open audit trail: %w", err)
		}
		defer trail.Close()
		opts.Observers = append(opts.Observers, trail)
	}

	var alerter notify.Alerter
	if cfg.Notify.Platform != "" {
		var err error
		alerter, err = buildAlerter(cfg.Notify)
		if err != nil {
			return err
		}
		opts.Observers = append(opts.Observers, newNotifyObserver(ctx, alerter))
	}

	// A dashboard's /state handler needs the engine's snapshot function, but
	// the dashboard must also be registered as an Observer before the engine
	// is constructed (Options.Observers is consumed by vsmengine.New). An
	// engine pointer set after New closes the loop.
	var eng *vsmengine.Engine
	var dash *dashboardui.Server
	if cfg.Dashboard.Enabled {
		dash = dashboardui.New(cfg.Dashboard.Addr, func() map[string]vsmvalue.Value {
			if eng == nil {
				return nil
			}
			return eng.StateSnapshot()
		})
		opts.Observers = append(opts.Observers, dash)
	}

	eng = vsmengine.New(ctx, opts)

	if cfg.Digest.Enabled {
		sched, err := digest.New(ctx, cfg.Digest.Cron, eng.StateSnapshot, alerter)
		if err != nil {
			return fmt.Errorf("vsm: start digest: %w", err)
		}
		defer sched.Stop()
	}

	if dash == nil {
		return eng.Run(ctx)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- dash.Run(ctx) }()
	go func() { errCh <- eng.Run(ctx) }()
	err = <-errCh
	cancel()
	<-errCh
	return err
}

func buildTransport(cfg config.IngressConfig) (ipc.IngressSource, ipc.EgressSink, error) {
	switch cfg.Transport {
	case "stdio":
		a := ipc.NewStdio(os.Stdin, os.Stdout)
		return a, a, nil
	case "stdio-nullable":
		a := ipc.NewNullableStdio(os.Stdin, os.Stdout)
		return a, a, nil
	case "websocket":
		a := ipc.NewWebSocket(cfg.WebSocketURL)
		return a, a, nil
	default:
		return nil, nil, fmt.Errorf("vsm: unsupported ingress transport %q", cfg.Transport)
	}
}

func buildAlerter(cfg config.NotifyConfig) (notify.Alerter, error) {
	switch cfg.Platform {
	case "slack":
		return notify.NewSlackAlerter(cfg.Slack.BotToken, cfg.Channel), nil
	case "discord":
		return notify.NewDiscordAlerter(cfg.Discord.BotToken, cfg.Channel)
	default:
		return nil, fmt.Errorf("vsm: unsupported notify platform %q", cfg.Platform)
	}
}

// notifyObserver adapts a notify.Alerter to trace.Observer, firing on the
// deadline-miss and invalid-message lines it recognizes without blocking
// the engine's trace fan-out.
type notifyObserver struct {
	ctx     context.Context
	alerter notify.Alerter
}

func newNotifyObserver(ctx context.Context, alerter notify.Alerter) *notifyObserver {
	return &notifyObserver{ctx: ctx, alerter: alerter}
}

func (o *notifyObserver) Observe(line string) {
	if line == trace.InvalidMessageLine {
		go o.alerter.Alert(o.ctx, line)
		return
	}
	if strings.HasPrefix(line, "condition not met by") {
		go o.alerter.Alert(o.ctx, line)
	}
}
