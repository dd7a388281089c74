package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/collabora/vsm/internal/replay"
	"github.com/collabora/vsm/internal/rulesdoc"
	"github.com/collabora/vsm/internal/signaldict"
	"github.com/collabora/vsm/internal/tracelog"
	"github.com/collabora/vsm/internal/vsmengine"
)

func newReplayCmd() *cobra.Command {
	var signalNumbersPath string

	cmd := &cobra.Command{
		Use:   "replay <replay-log-file> <rules-file>",
		Short: "Run the engine against a prior trace log only, for offline trace validation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args[0], args[1], signalNumbersPath)
		},
	}
	cmd.Flags().StringVar(&signalNumbersPath, "signal-numbers", "", "path to the signal number dictionary (optional)")
	return cmd
}

func runReplay(cmd *cobra.Command, replayLogPath, rulesPath, signalNumbersPath string) error {
	dict := signaldict.New()
	if signalNumbersPath != "" {
		loaded, err := signaldict.Load(signalNumbersPath)
		if err != nil {
			return fmt.Errorf("vsm: load signal dictionary: %w", err)
		}
		dict = loaded
	}

	rulesData, err := os.ReadFile(rulesPath)
	if err != nil {
		return fmt.Errorf("vsm: read rules: %w", err)
	}
	tree, err := rulesdoc.Compile(rulesData, dict)
	if err != nil {
		return fmt.Errorf("vsm: compile rules: %w", err)
	}

	f, err := os.Open(replayLogPath)
	if err != nil {
		return fmt.Errorf("vsm: open replay log: %w", err)
	}
	loaded, err := replay.Load(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("vsm: load replay log: %w", err)
	}
	events := replay.FilterIngress(loaded, dict.Has)

	log := tracelog.NewSink(cmd.OutOrStdout())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := vsmengine.New(ctx, vsmengine.Options{
		Dict:   dict,
		Tree:   tree,
		Log:    log,
		Replay: events,
		Out:    cmd.OutOrStdout(),
	})
	return eng.Run(ctx)
}
