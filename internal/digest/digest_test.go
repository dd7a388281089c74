package digest

import (
	"context"
	"sync"
	"testing"

	"github.com/collabora/vsm/internal/vsmvalue"
)

type fakePoster struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakePoster) Alert(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func TestNew_InvalidExpressionReturnsError(t *testing.T) {
	_, err := New(context.Background(), "not a cron expr", func() map[string]vsmvalue.Value { return nil }, &fakePoster{})
	if err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}

func TestNew_ValidExpressionStartsAndStops(t *testing.T) {
	sched, err := New(context.Background(), "@every 1h", func() map[string]vsmvalue.Value { return nil }, &fakePoster{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sched.Stop()
}

func TestRender_SortsByNameAndUsesLiteralForm(t *testing.T) {
	got := render(map[string]vsmvalue.Value{
		"ignition":     vsmvalue.BoolValue(true),
		"altitude":     vsmvalue.IntValue(500),
		"gear.current": vsmvalue.StringValue("park"),
	})
	want := "digest: {altitude = 500, gear.current = park, ignition = True}"
	if got != want {
		t.Errorf("render() = %q, want %q", got, want)
	}
}

func TestRender_EmptyState(t *testing.T) {
	if got, want := render(map[string]vsmvalue.Value{}), "digest: {}"; got != want {
		t.Errorf("render() = %q, want %q", got, want)
	}
}
