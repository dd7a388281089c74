package replay

import (
	"strings"
	"testing"
)

func TestLoad_ExtractsIngressLines(t *testing.T) {
	log := strings.Join([]string{
		"0,ignition,1,1",
		"1,condition: (ignition == 1) => True",
		"2,car.backup,3,'True'",
		"3,State = {",
		"alpha = True",
		"}",
	}, "\n")

	events, err := Load(strings.NewReader(log))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %v, want 2 (ignition and car.backup lines)", events)
	}
	if events[0].Name != "ignition" || events[0].RawLexeme != "1" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Name != "car.backup" || events[1].RawLexeme != "'True'" {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestFilterIngress_DropsDerivedSignals(t *testing.T) {
	events := []Event{
		{Name: "ignition", RawLexeme: "1"},
		{Name: "car.backup", RawLexeme: "'True'"},
	}
	isInput := func(name string) bool { return name == "ignition" }

	got := FilterIngress(events, isInput)
	if len(got) != 1 || got[0].Name != "ignition" {
		t.Errorf("FilterIngress = %v, want only ignition", got)
	}
}

func TestDriver_NextConsumesInOrder(t *testing.T) {
	d := NewDriver([]Event{{Name: "a"}, {Name: "b"}})

	ev, ok := d.Next()
	if !ok || ev.Name != "a" {
		t.Fatalf("first Next = %+v, %v", ev, ok)
	}
	if d.Remaining() != 1 {
		t.Errorf("Remaining = %d, want 1", d.Remaining())
	}

	ev, ok = d.Next()
	if !ok || ev.Name != "b" {
		t.Fatalf("second Next = %+v, %v", ev, ok)
	}

	if _, ok := d.Next(); ok {
		t.Error("Next should report false once exhausted")
	}
}
