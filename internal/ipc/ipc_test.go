package ipc

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func drain(t *testing.T, ch <-chan Message, timeout time.Duration) []Message {
	t.Helper()
	var got []Message
	deadline := time.After(timeout)
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, m)
		case <-deadline:
			return got
		}
	}
}

func TestStdioAdapter_ParsesLines(t *testing.T) {
	in := strings.NewReader("ignition,1\ntransmission.gear,'reverse'\n")
	var out bytes.Buffer
	a := NewStdio(in, &out)

	ctx := context.Background()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ch, err := a.Listen(ctx)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	got := drain(t, ch, time.Second)
	want := []Message{{"ignition", "1"}, {"transmission.gear", "'reverse'"}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStdioAdapter_Send(t *testing.T) {
	var out bytes.Buffer
	a := NewStdio(strings.NewReader(""), &out)
	if err := a.Send(context.Background(), Message{Name: "car.backup", RawLexeme: "'True'"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out.String() != "car.backup,'True'\n" {
		t.Errorf("Send wrote %q", out.String())
	}
}

func TestNullableStdioAdapter_NotAcceptableBecomesUnset(t *testing.T) {
	in := strings.NewReader("ignition,not-acceptable\n")
	a := NewNullableStdio(in, &bytes.Buffer{})
	ctx := context.Background()
	a.Connect(ctx)
	ch, _ := a.Listen(ctx)

	got := drain(t, ch, time.Second)
	if len(got) != 1 || got[0].Name != "ignition" || got[0].RawLexeme != "" {
		t.Errorf("got %v, want [{ignition }]", got)
	}
}

func TestNullableStdioAdapter_QuitTerminatesWithoutForwarding(t *testing.T) {
	in := strings.NewReader("ignition,1\nquit,''\nafter.quit,1\n")
	a := NewNullableStdio(in, &bytes.Buffer{})
	ctx := context.Background()
	a.Connect(ctx)
	ch, _ := a.Listen(ctx)

	got := drain(t, ch, time.Second)
	if len(got) != 1 || got[0].Name != "ignition" {
		t.Errorf("got %v, want only [ignition]; quit and anything after must not be forwarded", got)
	}
}
