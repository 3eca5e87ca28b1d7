package policy

import (
	"testing"

	"teamspace/internal/model"
)

func testWorkspace() *model.Workspace {
	return &model.Workspace{
		ID:      "ws-1",
		Owner:   "owner@example.com",
		Members: model.MemberList{"owner@example.com", "member@example.com"},
	}
}

func TestAllow(t *testing.T) {
	ws := testWorkspace()
	owner := &Caller{Email: "owner@example.com", Role: model.RoleUser}
	member := &Caller{Email: "member@example.com", Role: model.RoleUser}
	outsider := &Caller{Email: "other@example.com", Role: model.RoleUser}
	admin := &Caller{Email: "admin@example.com", Role: model.RoleAdmin}

	cases := []struct {
		name   string
		caller *Caller
		op     Operation
		want   bool
	}{
		{"nil caller denied", nil, OpReadWorkspace, false},
		{"empty email denied", &Caller{}, OpReadWorkspace, false},
		{"member reads", member, OpReadWorkspace, true},
		{"member updates goals", member, OpUpdateGoals, true},
		{"member adds member", member, OpAddMember, true},
		{"member cannot delete", member, OpDeleteWorkspace, false},
		{"owner deletes", owner, OpDeleteWorkspace, true},
		{"outsider cannot read", outsider, OpReadWorkspace, false},
		{"outsider cannot update", outsider, OpUpdateGoals, false},
		{"admin deletes", admin, OpDeleteWorkspace, true},
		{"admin updates without membership", admin, OpUpdateGoals, true},
		{"member cannot view admin", member, OpViewAdmin, false},
		{"admin views admin", admin, OpViewAdmin, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allow(tc.caller, ws, tc.op); got != tc.want {
				t.Fatalf("Allow() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAllow_AdminOpsIgnoreWorkspace(t *testing.T) {
	admin := &Caller{Email: "admin@example.com", Role: model.RoleAdmin}
	if !Allow(admin, nil, OpViewAdmin) {
		t.Fatal("admin should pass OpViewAdmin with nil workspace")
	}
	member := &Caller{Email: "member@example.com", Role: model.RoleUser}
	if Allow(member, nil, OpUpdateGoals) {
		t.Fatal("nil workspace should deny non-admin operations")
	}
}
