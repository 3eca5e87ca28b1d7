package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"teamspace/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendTaskAssignment_NotConfigured(t *testing.T) {
	n := NewEmailNotifier(&config.EmailConfig{}, "http://localhost:3000", testLogger())

	err := n.SendTaskAssignment(context.Background(), AssignmentNote{
		AssigneeEmail: "alice@example.com",
		TaskTitle:     "Design",
	})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendTest_NotConfigured(t *testing.T) {
	n := NewEmailNotifier(&config.EmailConfig{}, "http://localhost:3000", testLogger())

	if err := n.SendTest(context.Background(), "ops@example.com"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestBuildAssignmentBody(t *testing.T) {
	n := NewEmailNotifier(&config.EmailConfig{}, "http://localhost:3000/", testLogger())

	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	body := n.buildAssignmentBody(AssignmentNote{
		TaskTitle:     "Ship the release",
		WorkspaceName: "Sprint Board",
		AssignedBy:    "owner@example.com",
		DueDate:       &due,
	})

	for _, want := range []string{
		"Ship the release",
		"Sprint Board",
		"owner@example.com",
		"2026-09-15",
		"http://localhost:3000/dashboard",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestBuildAssignmentBody_Defaults(t *testing.T) {
	n := NewEmailNotifier(&config.EmailConfig{}, "http://localhost:3000", testLogger())

	body := n.buildAssignmentBody(AssignmentNote{TaskTitle: "Design", WorkspaceName: "WS"})
	if !strings.Contains(body, "No due date specified") {
		t.Error("missing due-date fallback")
	}
	if !strings.Contains(body, "system") {
		t.Error("missing assigned-by fallback")
	}
}
