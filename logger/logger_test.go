package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"divar-notifier/config"
	"divar-notifier/models"

	"github.com/fluent/fluent-logger-golang/fluent"
)

type recordingPoster struct {
	tags     []string
	messages []map[string]interface{}
}

func (p *recordingPoster) Post(tag string, message interface{}) error {
	p.tags = append(p.tags, tag)
	p.messages = append(p.messages, message.(map[string]interface{}))
	return nil
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, closeFn, err := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closeFn()

	l.Info("hidden")
	l.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record leaked past warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestFluentHandlerPostsRecords(t *testing.T) {
	poster := &recordingPoster{}
	var buf bytes.Buffer
	console := slog.NewTextHandler(&buf, nil)

	l := slog.New(Fanout(console, NewFluentHandler(poster, "notifier", slog.LevelInfo)))
	l = l.With("run_id", "abc")

	l.Debug("dropped")
	l.WithGroup("tg").Error("send failed", "attempt", 2, "error", errors.New("boom"))

	if len(poster.messages) != 1 {
		t.Fatalf("posted %d records, want 1", len(poster.messages))
	}
	if poster.tags[0] != "notifier.error" {
		t.Errorf("tag = %q, want notifier.error", poster.tags[0])
	}
	msg := poster.messages[0]
	if msg["message"] != "send failed" {
		t.Errorf("message = %v", msg["message"])
	}
	if msg["run_id"] != "abc" {
		t.Errorf("run_id = %v", msg["run_id"])
	}
	if msg["tg.attempt"] != int64(2) {
		t.Errorf("tg.attempt = %#v", msg["tg.attempt"])
	}
	if msg["tg.error"] != "boom" {
		t.Errorf("tg.error = %#v", msg["tg.error"])
	}
	if !strings.Contains(buf.String(), "send failed") {
		t.Errorf("console handler did not receive the record: %s", buf.String())
	}
}

func TestPlainReducesNamedTypes(t *testing.T) {
	tests := []struct {
		name string
		in   slog.Value
		want interface{}
	}{
		{"named string", slog.AnyValue(models.OutcomeCompleted), "completed"},
		{"named int", slog.AnyValue(models.SnapshotID(3)), int64(3)},
		{"duration", slog.DurationValue(1500 * time.Millisecond), "1.5s"},
		{"error", slog.AnyValue(errors.New("boom")), "boom"},
		{"nil", slog.AnyValue(nil), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := plain(tt.in); got != tt.want {
				t.Errorf("plain() = %#v, want %#v", got, tt.want)
			}
		})
	}

	group := plain(slog.GroupValue(slog.Int("captured", 2), slog.Any("outcome", models.OutcomeNoBrowser)))
	m, ok := group.(map[string]interface{})
	if !ok {
		t.Fatalf("group = %#v, want a map", group)
	}
	if m["captured"] != int64(2) || m["outcome"] != "no_browser" {
		t.Errorf("group = %#v", m)
	}

	ids := plain(slog.AnyValue([]models.SnapshotID{1, 2}))
	if list, ok := ids.([]interface{}); !ok || len(list) != 2 || list[1] != int64(2) {
		t.Errorf("slice = %#v", ids)
	}
}

func TestFluentHandlerEncodesThroughFluentClient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				io.Copy(io.Discard, conn)
			}()
		}
	}()

	client, err := fluent.New(fluent.Config{
		FluentHost: "127.0.0.1",
		FluentPort: ln.Addr().(*net.TCPAddr).Port,
		Timeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("fluent.New() error = %v", err)
	}
	defer client.Close()

	h := NewFluentHandler(client, "notifier", slog.LevelDebug).
		WithAttrs([]slog.Attr{slog.String("run_id", "abc")})

	records := map[string][]slog.Attr{
		"outcome":     {slog.Any("outcome", models.OutcomeCompleted)},
		"snapshot id": {slog.Any("snapshot", models.SnapshotID(4))},
		"group":       {slog.Group("stats", slog.Int("captured", 2), slog.Any("outcome", models.OutcomeNoLinks))},
		"slice":       {slog.Any("links", []string{"https://divar.ir/v/a"})},
	}
	for name, attrs := range records {
		t.Run(name, func(t *testing.T) {
			r := slog.NewRecord(time.Now(), slog.LevelInfo, "Run finished", 0)
			r.AddAttrs(attrs...)
			if err := h.Handle(context.Background(), r); err != nil {
				t.Errorf("Handle() error = %v", err)
			}
		})
	}
}
