package diff

import (
	"testing"

	"teamspace/internal/model"
)

func workspaceWithTasks(tasks ...model.Task) *model.Workspace {
	return &model.Workspace{
		ID:   "ws-1",
		Name: "Sprint Board",
		Goals: model.GoalList{
			{
				ID:    "g-1",
				Title: "Launch",
				Milestones: []model.Milestone{
					{ID: "m-1", Title: "Phase 1", Tasks: tasks},
				},
			},
		},
	}
}

func TestChanges_NoChange(t *testing.T) {
	old := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: "alice@example.com"})
	cur := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: "alice@example.com"})

	if got := Changes(old, cur); len(got) != 0 {
		t.Fatalf("expected no changes, got %d", len(got))
	}
}

func TestChanges_NewAssignment(t *testing.T) {
	old := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design"})
	cur := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: "alice@example.com"})

	got := Changes(old, cur)
	if len(got) != 1 {
		t.Fatalf("expected 1 change, got %d", len(got))
	}
	if got[0].OldAssignee != "" || got[0].NewAssignee != "alice@example.com" {
		t.Fatalf("unexpected change: %+v", got[0])
	}
}

func TestChanges_Reassignment(t *testing.T) {
	old := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: "alice@example.com"})
	cur := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: "bob@example.com"})

	got := Changes(old, cur)
	if len(got) != 1 {
		t.Fatalf("expected 1 change, got %d", len(got))
	}
	if got[0].OldAssignee != "alice@example.com" || got[0].NewAssignee != "bob@example.com" {
		t.Fatalf("unexpected change: %+v", got[0])
	}
}

func TestChanges_UnassignmentDoesNotFire(t *testing.T) {
	old := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: "alice@example.com"})
	cur := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: ""})

	if got := Changes(old, cur); len(got) != 0 {
		t.Fatalf("expected no changes on unassignment, got %d", len(got))
	}
}

func TestChanges_WhitespaceOnlyAssigneeIgnored(t *testing.T) {
	old := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design"})
	cur := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: "   "})

	if got := Changes(old, cur); len(got) != 0 {
		t.Fatalf("expected whitespace assignee to be ignored, got %d changes", len(got))
	}
}

func TestChanges_NewTaskWithAssigneeFires(t *testing.T) {
	old := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: "alice@example.com"})
	cur := workspaceWithTasks(
		model.Task{ID: "t-1", Title: "Design", AssignedTo: "alice@example.com"},
		model.Task{ID: "t-2", Title: "Build", AssignedTo: "bob@example.com"},
	)

	got := Changes(old, cur)
	if len(got) != 1 {
		t.Fatalf("expected 1 change, got %d", len(got))
	}
	if got[0].TaskID != "t-2" || got[0].OldAssignee != "" {
		t.Fatalf("unexpected change: %+v", got[0])
	}
}

// ID 重新生成会让未变化的指派被当成新指派，差异引擎按规则如实触发。
func TestChanges_RegeneratedIDsProduceFalsePositive(t *testing.T) {
	old := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: "alice@example.com"})
	cur := workspaceWithTasks(model.Task{ID: "t-1-new", Title: "Design", AssignedTo: "alice@example.com"})

	got := Changes(old, cur)
	if len(got) != 1 {
		t.Fatalf("expected 1 change, got %d", len(got))
	}
	if got[0].NewAssignee != "alice@example.com" || got[0].OldAssignee != "" {
		t.Fatalf("unexpected change: %+v", got[0])
	}
}

func TestChanges_NilOldWorkspace(t *testing.T) {
	cur := workspaceWithTasks(model.Task{ID: "t-1", Title: "Design", AssignedTo: "alice@example.com"})

	got := Changes(nil, cur)
	if len(got) != 1 {
		t.Fatalf("expected 1 change with nil old snapshot, got %d", len(got))
	}
}
