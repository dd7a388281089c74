package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/collabora/vsm/internal/dashboardui"
	"github.com/collabora/vsm/internal/vsmvalue"
)

func newDashboardCmd() *cobra.Command {
	var (
		port   int
		attach string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve /state and /events for a running engine's log file",
		Long:  "Tails a running engine's trace log and serves the same /state and /events endpoints a live engine's dashboard would, without needing a live engine process.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if attach == "" {
				return fmt.Errorf("vsm dashboard: --attach=<log-file> is required")
			}
			return runAttachedDashboard(cmd, attach, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	cmd.Flags().StringVar(&attach, "attach", "", "trace log file to tail")
	return cmd
}

// tailState accumulates the state a trace log implies by replaying every
// ingress/emitted line it has seen so far, the same "name,id,value" shape
// replay.Load recognizes.
type tailState struct {
	values map[string]vsmvalue.Value
}

func newTailState() *tailState {
	return &tailState{values: make(map[string]vsmvalue.Value)}
}

func (t *tailState) apply(payload string) {
	parts := strings.SplitN(payload, ",", 3)
	if len(parts) != 3 {
		return
	}
	if _, err := strconv.ParseUint(parts[1], 10, 32); err != nil {
		return
	}
	v, _ := vsmvalue.ParseLexeme(parts[2])
	t.values[parts[0]] = v
}

func (t *tailState) snapshot() map[string]vsmvalue.Value {
	out := make(map[string]vsmvalue.Value, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// stripTimestamp strips the "<ms>," prefix tracelog.Sink writes ahead of
// every line, returning the original trace payload.
func stripTimestamp(line string) (string, bool) {
	idx := strings.IndexByte(line, ',')
	if idx < 0 {
		return "", false
	}
	if _, err := strconv.Atoi(line[:idx]); err != nil {
		return "", false
	}
	return line[idx+1:], true
}

func runAttachedDashboard(cmd *cobra.Command, logPath string, port int) error {
	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("vsm: open %s: %w", logPath, err)
	}

	state := newTailState()
	reader := bufio.NewReader(f)

	server := dashboardui.New(fmt.Sprintf(":%d", port), state.snapshot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go tailLog(ctx, reader, state, server)

	fmt.Fprintf(cmd.OutOrStdout(), "dashboard attached to %s, listening on :%d\n", logPath, port)
	defer f.Close()
	return server.Run(ctx)
}

// tailLog polls for newly appended lines in the log file (the same
// poll-and-read-new-rows idiom used for following log output elsewhere in
// this codebase), applying each to state and forwarding it to the
// dashboard's live /events stream.
func tailLog(ctx context.Context, r *bufio.Reader, state *tailState, server *dashboardui.Server) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				line, err := r.ReadString('\n')
				if line != "" {
					payload, ok := stripTimestamp(strings.TrimRight(line, "\n"))
					if ok {
						state.apply(payload)
						server.Observe(payload)
					}
				}
				if err == io.EOF {
					break
				}
				if err != nil {
					return
				}
			}
		}
	}
}
