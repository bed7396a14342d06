package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestPrintStatus(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{
		"active":         true,
		"reading_count":  3,
		"last_lux":       1200.3,
		"last_lux_text":  "1200.3",
		"write_failures": 0,
		"session_id":     "abc",
		"log_path":       "/sdcard/LightAnalyzer/Light.csv",
	})
	if err != nil {
		t.Fatalf("NewStruct failed: %v", err)
	}

	var buf bytes.Buffer
	printStatus(&buf, msg)
	out := buf.String()

	for _, want := range []string{"sampling", "readings:       3", "last lux:       1200.3\n", "session:        abc", "/sdcard/LightAnalyzer/Light.csv"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintStatus_Idle(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{"active": false, "log_path": "x"})
	if err != nil {
		t.Fatalf("NewStruct failed: %v", err)
	}

	var buf bytes.Buffer
	printStatus(&buf, msg)
	if !strings.Contains(buf.String(), "idle") {
		t.Errorf("expected idle state, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "session:") {
		t.Errorf("expected no session line, got:\n%s", buf.String())
	}
}

func TestPrintFeed(t *testing.T) {
	reading, _ := structpb.NewStruct(map[string]any{"type": "reading", "count": 2, "lux": 10.5, "lux_text": "10.5", "category": "Low Light"})
	notice, _ := structpb.NewStruct(map[string]any{"type": "notice", "message": "Light sensor sampling stopped"})

	var buf bytes.Buffer
	printFeed(&buf, reading)
	printFeed(&buf, notice)

	want := "#2  10.5 lux (Low Light)\n* Light sensor sampling stopped\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestDescribe(t *testing.T) {
	err := describe(status.Error(codes.FailedPrecondition, "sensor unavailable"))
	if err.Error() != "FailedPrecondition: sensor unavailable" {
		t.Errorf("unexpected message %q", err.Error())
	}

	plain := errors.New("boom")
	if describe(plain) != plain {
		t.Error("expected non-status errors to pass through")
	}
}

func TestPrintSessions(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]any{
		"sessions": []any{
			map[string]any{
				"id":             "a",
				"started_at":     "2024-03-09T13:00:00Z",
				"stopped_at":     "2024-03-09T13:01:00Z",
				"running":        false,
				"reading_count":  300,
				"write_failures": 0,
			},
			map[string]any{
				"id":             "b",
				"started_at":     "2024-03-09T14:00:00Z",
				"stopped_at":     "",
				"running":        true,
				"reading_count":  12,
				"write_failures": 1,
			},
		},
	})
	if err != nil {
		t.Fatalf("NewStruct failed: %v", err)
	}

	var buf bytes.Buffer
	printSessions(&buf, resp)

	want := "a  2024-03-09T13:00:00Z -> 2024-03-09T13:01:00Z  readings=300 failures=0\n" +
		"b  2024-03-09T14:00:00Z -> running  readings=12 failures=1\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}

	buf.Reset()
	printSessions(&buf, &structpb.Struct{})
	if buf.String() != "no sessions\n" {
		t.Errorf("expected empty listing, got %q", buf.String())
	}
}
