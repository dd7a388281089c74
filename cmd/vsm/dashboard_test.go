package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestDashboardCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"dashboard", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("dashboard --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "--port") {
		t.Errorf("expected help to mention '--port' flag, got: %s", out)
	}
	if !strings.Contains(out, "--attach") {
		t.Errorf("expected help to mention '--attach' flag, got: %s", out)
	}
}

func TestDashboardCmd_RequiresAttach(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"dashboard"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error when --attach is not given")
	}
	if !strings.Contains(err.Error(), "--attach") {
		t.Errorf("error = %q, want to mention --attach", err.Error())
	}
}

func TestDashboardCmd_DefaultPort(t *testing.T) {
	cmd := newDashboardCmd()
	flag := cmd.Flags().Lookup("port")
	if flag == nil {
		t.Fatal("--port flag not found")
	}
	if flag.DefValue != "8080" {
		t.Errorf("default port = %q, want %q", flag.DefValue, "8080")
	}
}

func TestTailState_AppliesValidLineAndIgnoresMalformed(t *testing.T) {
	state := newTailState()
	state.apply("door_open,12,true")
	state.apply("not,a,valid,line,at,all")
	state.apply("missing-fields")

	snap := state.snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 entry, got %d: %v", len(snap), snap)
	}
	if _, ok := snap["door_open"]; !ok {
		t.Errorf("expected snapshot to contain door_open, got %v", snap)
	}
}

func TestStripTimestamp(t *testing.T) {
	payload, ok := stripTimestamp("1234,door_open,12,true")
	if !ok {
		t.Fatal("expected stripTimestamp to succeed")
	}
	if payload != "door_open,12,true" {
		t.Errorf("payload = %q, want %q", payload, "door_open,12,true")
	}

	if _, ok := stripTimestamp("no-comma-here"); ok {
		t.Error("expected stripTimestamp to fail without a timestamp prefix")
	}
}
