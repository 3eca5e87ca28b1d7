package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"teamspace/internal/activity"
	"teamspace/internal/model"
	"teamspace/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

func TestGetUser_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.users = &mockUserDirectory{
		getByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return nil, store.ErrUserNotFound
		},
	}

	r := gin.New()
	r.GET("/api/user/:email", s.handleGetUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user/ghost@example.com", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateUser_UpsertsAndRecords(t *testing.T) {
	s := newTestServer(t)

	var gotName string
	s.users = &mockUserDirectory{
		updateNameFunc: func(ctx context.Context, email, name string) (*model.User, error) {
			gotName = name
			return &model.User{Email: email, Name: name, Role: model.RoleUser}, nil
		},
	}
	activityLog := &mockActivityLog{}
	s.activity = activityLog

	r := gin.New()
	r.PUT("/api/user/:email", s.handleUpdateUser)

	payload, _ := json.Marshal(updateUserRequest{Name: "  Alice  "})
	req := httptest.NewRequest(http.MethodPut, "/api/user/Alice@Example.com", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotName != "Alice" {
		t.Fatalf("name should be trimmed, got %q", gotName)
	}
	if len(activityLog.records) != 1 || activityLog.records[0].Type != model.ActivityProfileUpdate {
		t.Fatalf("expected profile_update activity, got %+v", activityLog.records)
	}
}

func TestNotifications_FilterAndShape(t *testing.T) {
	s := newTestServer(t)

	activityLog := &mockActivityLog{
		queryFunc: func(ctx context.Context, filter activity.Filter, limit, offset int) ([]model.Activity, int64, error) {
			if limit != 20 {
				t.Fatalf("limit = %d, want 20", limit)
			}
			return []model.Activity{
				{
					ID:        7,
					Type:      model.ActivityMemberAdded,
					Actor:     "alice@example.com",
					Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
					Metadata: datatypes.JSONMap{
						"workspaceId":   "ws-1",
						"workspaceName": "Sprint Board",
						"addedBy":       "owner@example.com",
					},
				},
			}, 1, nil
		},
	}
	s.activity = activityLog

	r := gin.New()
	r.GET("/api/notifications/:email", s.handleNotifications)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/Alice@Example.com", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if activityLog.lastFilter.Actor != "alice@example.com" {
		t.Fatalf("actor filter = %q", activityLog.lastFilter.Actor)
	}
	if len(activityLog.lastFilter.Types) != 1 || activityLog.lastFilter.Types[0] != model.ActivityMemberAdded {
		t.Fatalf("type filter = %v", activityLog.lastFilter.Types)
	}

	var resp struct {
		Notifications []notificationItem `json:"notifications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(resp.Notifications))
	}
	n := resp.Notifications[0]
	if n.WorkspaceID != "ws-1" || n.WorkspaceName != "Sprint Board" || n.AddedBy != "owner@example.com" {
		t.Fatalf("unexpected notification: %+v", n)
	}
}
