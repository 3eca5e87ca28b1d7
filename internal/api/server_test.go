package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"teamspace/internal/activity"
	"teamspace/internal/config"
	"teamspace/internal/model"
	"teamspace/internal/pkg/metrics"
	"teamspace/internal/pkg/notify"

	"github.com/gin-gonic/gin"
)

type mockWorkspaceStore struct {
	getFunc           func(ctx context.Context, id string) (*model.Workspace, error)
	createFunc        func(ctx context.Context, name, ownerEmail string, members []string, goals model.GoalList) (*model.Workspace, error)
	replaceGoalsFunc  func(ctx context.Context, id string, goals model.GoalList) (*model.Workspace, error)
	deleteFunc        func(ctx context.Context, id string) ([]string, error)
	addMemberFunc     func(ctx context.Context, id, email string) (*model.Workspace, error)
	listForMemberFunc func(ctx context.Context, email string) ([]model.Workspace, error)
	listAllFunc       func(ctx context.Context) ([]model.Workspace, error)

	replaceCalls int
	deleteCalls  int
}

func (m *mockWorkspaceStore) Get(ctx context.Context, id string) (*model.Workspace, error) {
	return m.getFunc(ctx, id)
}

func (m *mockWorkspaceStore) Create(ctx context.Context, name, ownerEmail string, members []string, goals model.GoalList) (*model.Workspace, error) {
	return m.createFunc(ctx, name, ownerEmail, members, goals)
}

func (m *mockWorkspaceStore) ReplaceGoals(ctx context.Context, id string, goals model.GoalList) (*model.Workspace, error) {
	m.replaceCalls++
	return m.replaceGoalsFunc(ctx, id, goals)
}

func (m *mockWorkspaceStore) Delete(ctx context.Context, id string) ([]string, error) {
	m.deleteCalls++
	return m.deleteFunc(ctx, id)
}

func (m *mockWorkspaceStore) AddMember(ctx context.Context, id, email string) (*model.Workspace, error) {
	return m.addMemberFunc(ctx, id, email)
}

func (m *mockWorkspaceStore) ListForMember(ctx context.Context, email string) ([]model.Workspace, error) {
	return m.listForMemberFunc(ctx, email)
}

func (m *mockWorkspaceStore) ListAll(ctx context.Context) ([]model.Workspace, error) {
	return m.listAllFunc(ctx)
}

type mockUserDirectory struct {
	getByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	updateNameFunc func(ctx context.Context, email, name string) (*model.User, error)
	listAllFunc    func(ctx context.Context) ([]model.User, error)
}

func (m *mockUserDirectory) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.getByEmailFunc(ctx, email)
}

func (m *mockUserDirectory) UpdateName(ctx context.Context, email, name string) (*model.User, error) {
	return m.updateNameFunc(ctx, email, name)
}

func (m *mockUserDirectory) ListAll(ctx context.Context) ([]model.User, error) {
	return m.listAllFunc(ctx)
}

type recordedActivity struct {
	Type     string
	Actor    string
	Metadata map[string]interface{}
}

type mockActivityLog struct {
	records   []recordedActivity
	queryFunc func(ctx context.Context, filter activity.Filter, limit, offset int) ([]model.Activity, int64, error)
	countFunc func(ctx context.Context, types []string, since time.Time) (int64, error)

	lastFilter activity.Filter
}

func (m *mockActivityLog) Record(actType, actor, description string, metadata map[string]interface{}, meta activity.RequestMeta) {
	m.records = append(m.records, recordedActivity{Type: actType, Actor: actor, Metadata: metadata})
}

func (m *mockActivityLog) Query(ctx context.Context, filter activity.Filter, limit, offset int) ([]model.Activity, int64, error) {
	m.lastFilter = filter
	if m.queryFunc != nil {
		return m.queryFunc(ctx, filter, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockActivityLog) CountSince(ctx context.Context, types []string, since time.Time) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, types, since)
	}
	return 0, nil
}

type dispatchCall struct {
	OldWs, NewWs *model.Workspace
	AssignedBy   string
}

type mockDispatcher struct {
	calls []dispatchCall
}

func (m *mockDispatcher) WorkspaceUpdated(oldWs, newWs *model.Workspace, assignedBy string) {
	m.calls = append(m.calls, dispatchCall{OldWs: oldWs, NewWs: newWs, AssignedBy: assignedBy})
}

type mockAttachments struct {
	uploadFunc   func(ctx context.Context, workspaceID, taskID, originalName string, size int64, r io.Reader) (*model.Workspace, *model.Attachment, error)
	removeFunc   func(ctx context.Context, workspaceID, taskID, fileName string) (*model.Workspace, error)
	maxBytes     int64
	cleanedFiles [][]string
}

func (m *mockAttachments) Upload(ctx context.Context, workspaceID, taskID, originalName string, size int64, r io.Reader) (*model.Workspace, *model.Attachment, error) {
	return m.uploadFunc(ctx, workspaceID, taskID, originalName, size, r)
}

func (m *mockAttachments) Remove(ctx context.Context, workspaceID, taskID, fileName string) (*model.Workspace, error) {
	return m.removeFunc(ctx, workspaceID, taskID, fileName)
}

func (m *mockAttachments) CleanupFiles(fileNames []string) {
	m.cleanedFiles = append(m.cleanedFiles, fileNames)
}

func (m *mockAttachments) MaxBytes() int64 {
	if m.maxBytes > 0 {
		return m.maxBytes
	}
	return 10 << 20
}

type mockTestNotifier struct {
	sendTestFunc func(ctx context.Context, toEmail string) error
	testCalls    int
}

func (m *mockTestNotifier) SendTaskAssignment(ctx context.Context, note notify.AssignmentNote) error {
	return nil
}

func (m *mockTestNotifier) SendTest(ctx context.Context, toEmail string) error {
	m.testCalls++
	if m.sendTestFunc != nil {
		return m.sendTestFunc(ctx, toEmail)
	}
	return nil
}

// userTable 按邮箱返回用户的 UserDirectory 桩，resolveCaller 的查询回退用。
func userTable(users map[string]*model.User) *mockUserDirectory {
	return &mockUserDirectory{
		getByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			if u, ok := users[email]; ok {
				return u, nil
			}
			return nil, errRecordMissing
		},
	}
}

var errRecordMissing = errors.New("record missing")

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics(1)

	return &Server{
		cfg:    &config.Config{App: config.AppConfig{MaxUploadBytes: 10 << 20}},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func sprintWorkspace() *model.Workspace {
	return &model.Workspace{
		ID:      "ws-1",
		Name:    "Sprint Board",
		Owner:   "owner@example.com",
		Members: model.MemberList{"owner@example.com", "member@example.com"},
		Goals: model.GoalList{
			{
				ID:       "g-1",
				Title:    "Launch",
				Priority: model.PriorityHigh,
				Milestones: []model.Milestone{
					{ID: "m-1", Title: "Phase 1", Tasks: []model.Task{{ID: "t-1", Title: "Design"}}},
				},
			},
		},
	}
}
