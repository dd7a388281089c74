// Package digest posts a periodic recap of the engine's current signal
// state on a cron schedule, entirely outside the deterministic trace path:
// disabling it must never change a run's recorded output.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/collabora/vsm/internal/vsmvalue"
)

// Poster delivers a rendered digest message. notify.Alerter satisfies this.
type Poster interface {
	Alert(ctx context.Context, message string) error
}

// Snapshotter supplies the engine's current signal state at post time.
type Snapshotter func() map[string]vsmvalue.Value

// Scheduler posts a digest of the current state every time spec fires,
// using the standard 5-field cron fields plus the usual "@every"/"@hourly"
// descriptors.
type Scheduler struct {
	cron *cron.Cron
}

// New parses spec and starts a Scheduler that renders snap's result and
// delivers it through poster on every fire. The cron job runs until Stop is
// called.
func New(ctx context.Context, spec string, snap Snapshotter, poster Poster) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		poster.Alert(ctx, render(snap()))
	})
	if err != nil {
		return nil, fmt.Errorf("digest: invalid cron expression %q: %w", spec, err)
	}
	c.Start()
	return &Scheduler{cron: c}, nil
}

// Stop halts future digest posts and waits for any in-flight one to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// render formats a state snapshot as one line, "digest: {name = value, ...}",
// with the pairs in lexicographic name order and each value rendered by
// Literal, as trace.StateDump renders a value.
func render(state map[string]vsmvalue.Value) string {
	names := make([]string, 0, len(state))
	for name := range state {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("digest: {")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(" = ")
		b.WriteString(state[name].Literal())
	}
	b.WriteString("}")
	return b.String()
}
