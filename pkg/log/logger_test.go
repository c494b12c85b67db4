package log

import (
	"strings"
	"testing"
	"time"
)

func TestLevelGating(t *testing.T) {
	cap := NewCaptureOutput()
	l := NewLogger(WithLevel(WarnLevel), WithOutput(cap))
	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept")
	l.Error("kept too")
	entries := cap.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != WarnLevel || entries[1].Level != ErrorLevel {
		t.Fatalf("unexpected levels: %v %v", entries[0].Level, entries[1].Level)
	}
}

func TestWithFieldsPropagate(t *testing.T) {
	l, cap := NewTestLogger()
	child := l.With(Component("emitter"), Str("sub", "abc"))
	child.Info("cycle", Int("n", 3))
	entries := cap.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	f := entries[0].Fields
	if f["component"] != "emitter" || f["sub"] != "abc" {
		t.Fatalf("missing inherited fields: %v", f)
	}
	if f["n"] != int64(3) && f["n"] != 3 {
		t.Fatalf("missing call-site field: %v", f)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": DebugLevel, "INFO": InfoLevel, "warn": WarnLevel,
		"warning": WarnLevel, "error": ErrorLevel, "fatal": FatalLevel, "": InfoLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestTextFormatterStableOrder(t *testing.T) {
	f := &TextFormatter{DisableTimestamp: true}
	b, err := f.Format(&Entry{
		Level:     InfoLevel,
		Message:   "hello",
		Fields:    Fields{"b": 2, "a": 1},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	line := string(b)
	if !strings.HasPrefix(line, "INFO hello a=1 b=2") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestJSONFormatterFieldsInlined(t *testing.T) {
	f := &JSONFormatter{}
	b, err := f.Format(&Entry{
		Level:     WarnLevel,
		Message:   "w",
		Fields:    Fields{"k": "v"},
		Timestamp: time.Unix(0, 0),
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"level":"WARN"`, `"msg":"w"`, `"k":"v"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %s in %s", want, s)
		}
	}
}
