package tracelog

import (
	"bytes"
	"regexp"
	"testing"
)

func TestWriteLog_PrefixesTimestamp(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	if err := s.WriteLog("hello"); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}
	if err := s.w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	matched, err := regexp.MatchString(`^\d+,hello\n$`, buf.String())
	if err != nil {
		t.Fatalf("regexp: %v", err)
	}
	if !matched {
		t.Errorf("WriteLog output = %q, want pattern <digits>,hello", buf.String())
	}
}

func TestWriteLog_MultipleLinesAccumulate(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)
	s.WriteLog("one")
	s.WriteLog("two")
	s.w.Flush()

	matched, _ := regexp.MatchString(`^\d+,one\n\d+,two\n$`, buf.String())
	if !matched {
		t.Errorf("output = %q", buf.String())
	}
}
