package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todogram/internal/gateway"
	"todogram/internal/models"
)

type fakeGateway struct {
	tasks     []*models.TaskSummary
	lists     []*models.ListSummary
	created   []gateway.CreateTaskRequest
	updated   map[int]map[string]any
	deleted   []int
	failWith  error
	fetchFail error
}

func (f *fakeGateway) FetchTask(ctx context.Context, apiKey string, taskID int) (*models.TaskSummary, error) {
	if f.fetchFail != nil {
		return nil, f.fetchFail
	}
	for _, t := range f.tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeGateway) ListAssignedTasks(ctx context.Context, apiKey string) ([]*models.TaskSummary, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.tasks, nil
}

func (f *fakeGateway) ListLists(ctx context.Context, apiKey string) ([]*models.ListSummary, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.lists, nil
}

func (f *fakeGateway) CreateTask(ctx context.Context, apiKey string, req gateway.CreateTaskRequest) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.created = append(f.created, req)
	return nil
}

func (f *fakeGateway) UpdateTask(ctx context.Context, apiKey string, taskID int, fields map[string]any) error {
	if f.failWith != nil {
		return f.failWith
	}
	if f.updated == nil {
		f.updated = map[int]map[string]any{}
	}
	f.updated[taskID] = fields
	return nil
}

func (f *fakeGateway) DeleteTask(ctx context.Context, apiKey string, taskID int) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.deleted = append(f.deleted, taskID)
	return nil
}

type fakeReminderStore struct {
	reminders []*models.Reminder
	nextID    int
	deleteErr error
}

func (f *fakeReminderStore) Create(ctx context.Context, reminder *models.Reminder) error {
	if _, err := models.ParseRepeatInterval(string(reminder.RepeatInterval)); err != nil {
		return err
	}
	f.nextID++
	reminder.ID = f.nextID
	f.reminders = append(f.reminders, reminder)
	return nil
}

func (f *fakeReminderStore) ListPending(ctx context.Context, chatID int64) ([]*models.Reminder, error) {
	var out []*models.Reminder
	for _, r := range f.reminders {
		if r.ChatID == chatID && !r.Sent {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminderStore) Delete(ctx context.Context, reminderID int, chatID int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, r := range f.reminders {
		if r.ID == reminderID && r.ChatID == chatID {
			f.reminders = append(f.reminders[:i], f.reminders[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

type fakeLinkStore struct {
	links   map[int64]*models.ChatLink
	touched []int64
}

func (f *fakeLinkStore) GetByChatID(ctx context.Context, chatID int64) (*models.ChatLink, error) {
	link, ok := f.links[chatID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return link, nil
}

func (f *fakeLinkStore) Upsert(ctx context.Context, link *models.ChatLink) error {
	if f.links == nil {
		f.links = map[int64]*models.ChatLink{}
	}
	f.links[link.ChatID] = link
	return nil
}

func (f *fakeLinkStore) TouchActivity(ctx context.Context, chatID int64, at time.Time) error {
	f.touched = append(f.touched, chatID)
	return nil
}

const testChatID int64 = 42

func newTestHandlers(gw *fakeGateway, at time.Time) (*Handlers, *fakeReminderStore, *fakeLinkStore) {
	reminders := &fakeReminderStore{}
	links := &fakeLinkStore{links: map[int64]*models.ChatLink{
		testChatID: {ID: 1, ChatID: testChatID, Username: "alice", APIKey: "key-1"},
	}}
	h := New(gw, reminders, links)
	h.now = func() time.Time { return at }
	return h, reminders, links
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestProcessUnlinkedChat(t *testing.T) {
	h, _, _ := newTestHandlers(&fakeGateway{}, time.Now())

	reply := h.Process(context.Background(), 999, "bob", "/tasks")
	assert.Equal(t, replyLinkPrompt, reply)
}

func TestProcessStartAndHelpWorkUnlinked(t *testing.T) {
	h, _, _ := newTestHandlers(&fakeGateway{}, time.Now())

	assert.Equal(t, startText, h.Process(context.Background(), 999, "bob", "/start"))
	assert.Equal(t, helpText, h.Process(context.Background(), 999, "bob", "/help"))
}

func TestProcessLinkCommand(t *testing.T) {
	h, _, links := newTestHandlers(&fakeGateway{}, time.Now())

	reply := h.Process(context.Background(), 999, "bob", "/link secret-key")
	assert.Equal(t, "✅ Account linked successfully!", reply)

	link, ok := links.links[999]
	require.True(t, ok)
	assert.Equal(t, "secret-key", link.APIKey)
	assert.Equal(t, "bob", link.Username)
}

func TestProcessLinkRejectsInvalidKey(t *testing.T) {
	gw := &fakeGateway{failWith: &gateway.Error{StatusCode: 401}}
	h, _, links := newTestHandlers(gw, time.Now())

	reply := h.Process(context.Background(), 999, "bob", "/link bad-key")
	assert.Equal(t, "❌ Invalid API key", reply)
	assert.NotContains(t, links.links, int64(999))
}

func TestProcessUnauthorizedPromptsRelink(t *testing.T) {
	gw := &fakeGateway{failWith: &gateway.Error{StatusCode: 401}}
	h, _, _ := newTestHandlers(gw, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/tasks")
	assert.Equal(t, replyRelink, reply)
}

func TestProcessUsageErrorBecomesReply(t *testing.T) {
	h, _, _ := newTestHandlers(&fakeGateway{}, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/remind #3")
	assert.Contains(t, reply, "/remind #ID HH:mm")
}

func TestProcessTouchesActivity(t *testing.T) {
	h, _, links := newTestHandlers(&fakeGateway{}, time.Now())

	h.Process(context.Background(), testChatID, "alice", "/reminders")
	assert.Equal(t, []int64{testChatID}, links.touched)
}

func TestHandleTasksFilters(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	gw := &fakeGateway{tasks: []*models.TaskSummary{
		{ID: 1, Title: "Due today", DueDate: datePtr(2024, 6, 15), Status: "Pending"},
		{ID: 2, Title: "Overdue", DueDate: datePtr(2024, 6, 10), Status: "InProgress"},
		{ID: 3, Title: "Upcoming", DueDate: datePtr(2024, 6, 20), Status: "Pending"},
		{ID: 4, Title: "No due date", Status: "Pending"},
		{ID: 5, Title: "Finished", DueDate: datePtr(2024, 6, 15), Status: "Done"},
	}}
	h, _, _ := newTestHandlers(gw, now)

	t.Run("today", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/tasks today")
		assert.Contains(t, reply, "Due today")
		assert.NotContains(t, reply, "Overdue")
		assert.NotContains(t, reply, "Upcoming")
		assert.NotContains(t, reply, "Finished")
	})

	t.Run("overdue", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/tasks overdue")
		assert.Contains(t, reply, "Overdue")
		assert.NotContains(t, reply, "Due today")
	})

	t.Run("upcoming", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/tasks upcoming")
		assert.Contains(t, reply, "Upcoming")
		assert.NotContains(t, reply, "No due date")
	})

	t.Run("all keeps undated and skips done", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/tasks")
		assert.Contains(t, reply, "No due date")
		assert.NotContains(t, reply, "Finished")
	})
}

func TestHandleTasksEmpty(t *testing.T) {
	h, _, _ := newTestHandlers(&fakeGateway{}, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/tasks today")
	assert.Equal(t, "📭 You have no tasks due today", reply)
}

func TestHandleTasksTruncation(t *testing.T) {
	gw := &fakeGateway{}
	for i := 1; i <= 20; i++ {
		gw.tasks = append(gw.tasks, &models.TaskSummary{
			ID: i, Title: fmt.Sprintf("Task %d", i), Status: "Pending",
		})
	}
	h, _, _ := newTestHandlers(gw, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/tasks")
	assert.Contains(t, reply, "(20)")
	assert.Contains(t, reply, "... and 5 more tasks")
	assert.NotContains(t, reply, "Task 16\n")
}

func TestHandleCreate(t *testing.T) {
	gw := &fakeGateway{lists: []*models.ListSummary{{ID: 10, Title: "Inbox"}}}
	h, _, _ := newTestHandlers(gw, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/create Buy milk | From the store | 2024-12-31")
	assert.Contains(t, reply, `✅ Task "Buy milk" created`)
	assert.Contains(t, reply, "(due 2024-12-31)")

	require.Len(t, gw.created, 1)
	req := gw.created[0]
	assert.Equal(t, "Buy milk", req.Title)
	assert.Equal(t, "From the store", req.Description)
	assert.Equal(t, 10, req.ListID)
	require.NotNil(t, req.DueDate)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), *req.DueDate)
}

func TestHandleCreateDropsBadDate(t *testing.T) {
	gw := &fakeGateway{lists: []*models.ListSummary{{ID: 10, Title: "Inbox"}}}
	h, _, _ := newTestHandlers(gw, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/create Buy milk | notes | tomorrow")
	assert.Contains(t, reply, "created")
	require.Len(t, gw.created, 1)
	assert.Nil(t, gw.created[0].DueDate)
}

func TestHandleCreateNeedsList(t *testing.T) {
	h, _, _ := newTestHandlers(&fakeGateway{}, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/create Buy milk | x")
	assert.Equal(t, "Create a list in the web app first", reply)
}

func TestHandleEdit(t *testing.T) {
	gw := &fakeGateway{}
	h, _, _ := newTestHandlers(gw, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/edit #5 title New name")
	assert.Equal(t, "✅ Task #5 updated!", reply)
	assert.Equal(t, map[string]any{"title": "New name"}, gw.updated[5])
}

func TestHandleEditRejectsBadDate(t *testing.T) {
	gw := &fakeGateway{}
	h, _, _ := newTestHandlers(gw, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/edit #5 due next-week")
	assert.Equal(t, "Invalid date format. Use YYYY-MM-DD", reply)
	assert.Empty(t, gw.updated)
}

func TestHandleComplete(t *testing.T) {
	gw := &fakeGateway{}
	h, _, _ := newTestHandlers(gw, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/complete #5")
	assert.Equal(t, "✅ Task #5 completed!", reply)
	assert.Equal(t, map[string]any{"status": "Done"}, gw.updated[5])
}

func TestHandleDeleteTask(t *testing.T) {
	gw := &fakeGateway{}
	h, _, _ := newTestHandlers(gw, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/delete 5")
	assert.Equal(t, "🗑️ Task #5 deleted!", reply)
	assert.Equal(t, []int{5}, gw.deleted)
}

func TestHandleFind(t *testing.T) {
	gw := &fakeGateway{tasks: []*models.TaskSummary{
		{ID: 1, Title: "Write report", Status: "Pending"},
		{ID: 2, Title: "Groceries", Description: "milk and report paper", Status: "Pending"},
		{ID: 3, Title: "Call dentist", Status: "Pending"},
	}}
	h, _, _ := newTestHandlers(gw, time.Now())

	t.Run("by id", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/find 3")
		assert.Contains(t, reply, "Call dentist")
		assert.NotContains(t, reply, "Write report")
	})

	t.Run("by substring over title and description", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/find REPORT")
		assert.Contains(t, reply, "Write report")
		assert.Contains(t, reply, "Groceries")
		assert.NotContains(t, reply, "Call dentist")
	})

	t.Run("no match", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/find zzz")
		assert.Contains(t, reply, "No tasks found")
	})
}

func TestHandleRemindRollsToTomorrow(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	gw := &fakeGateway{tasks: []*models.TaskSummary{{ID: 3, Title: "Ship release", Status: "Pending"}}}
	h, reminders, _ := newTestHandlers(gw, now)

	t.Run("future time stays today", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/remind #3 10:00")
		assert.Contains(t, reply, "✅ Reminder set for 10:00 2024-06-15 UTC")
	})

	t.Run("past time rolls to tomorrow", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/remind #3 08:00")
		assert.Contains(t, reply, "✅ Reminder set for 08:00 2024-06-16 UTC")
	})

	require.Len(t, reminders.reminders, 2)
	assert.Equal(t, "⏰ Reminder: Ship release", reminders.reminders[0].Message)
	assert.Equal(t, 3, reminders.reminders[0].TaskID)
}

func TestHandleRemindRecurring(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	gw := &fakeGateway{tasks: []*models.TaskSummary{{ID: 3, Title: "Standup", Status: "Pending"}}}
	h, reminders, _ := newTestHandlers(gw, now)

	reply := h.Process(context.Background(), testChatID, "alice", "/remind #3 10:00 daily")
	assert.Contains(t, reply, "(repeats daily)")

	require.Len(t, reminders.reminders, 1)
	assert.Equal(t, models.RepeatDaily, reminders.reminders[0].RepeatInterval)
}

func TestHandleRemindUnknownTask(t *testing.T) {
	h, reminders, _ := newTestHandlers(&fakeGateway{}, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/remind #99 10:00")
	assert.Equal(t, "Task #99 not found", reply)
	assert.Empty(t, reminders.reminders)
}

func TestHandleTomorrow(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)
	gw := &fakeGateway{tasks: []*models.TaskSummary{{ID: 4, Title: "Pay rent", Status: "Pending"}}}
	h, reminders, _ := newTestHandlers(gw, now)

	reply := h.Process(context.Background(), testChatID, "alice", "/tomorrow #4")
	assert.Contains(t, reply, "✅ Reminder set for 09:00 2024-06-16 UTC")

	require.Len(t, reminders.reminders, 1)
	assert.Equal(t, time.Date(2024, 6, 16, 9, 0, 0, 0, time.UTC), reminders.reminders[0].FireAt)
	assert.Equal(t, models.RepeatNone, reminders.reminders[0].RepeatInterval)
}

func TestHandleReminderList(t *testing.T) {
	gw := &fakeGateway{tasks: []*models.TaskSummary{{ID: 3, Title: "Standup", Status: "Pending"}}}
	h, _, _ := newTestHandlers(gw, time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))

	t.Run("empty", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/reminders")
		assert.Equal(t, "📭 You have no active reminders", reply)
	})

	t.Run("lists pending", func(t *testing.T) {
		h.Process(context.Background(), testChatID, "alice", "/remind #3 10:00 weekly")

		reply := h.Process(context.Background(), testChatID, "alice", "/reminders")
		assert.Contains(t, reply, "Task #3")
		assert.Contains(t, reply, "10:00 2024-06-15 UTC")
		assert.Contains(t, reply, "repeats weekly")
	})
}

func TestHandleUnremind(t *testing.T) {
	gw := &fakeGateway{tasks: []*models.TaskSummary{{ID: 3, Title: "Standup", Status: "Pending"}}}
	h, reminders, _ := newTestHandlers(gw, time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	h.Process(context.Background(), testChatID, "alice", "/remind #3 10:00")
	require.Len(t, reminders.reminders, 1)
	id := reminders.reminders[0].ID

	t.Run("deletes own reminder", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", fmt.Sprintf("/unremind %d", id))
		assert.Equal(t, fmt.Sprintf("🗑️ Reminder #%d deleted", id), reply)
		assert.Empty(t, reminders.reminders)
	})

	t.Run("missing reminder", func(t *testing.T) {
		reply := h.Process(context.Background(), testChatID, "alice", "/unremind 999")
		assert.Equal(t, "Reminder not found", reply)
	})
}

func TestHandleLists(t *testing.T) {
	gw := &fakeGateway{lists: []*models.ListSummary{
		{ID: 1, Title: "Work", TasksCount: 7},
		{ID: 2, Title: "Home", TasksCount: 2},
	}}
	h, _, _ := newTestHandlers(gw, time.Now())

	reply := h.Process(context.Background(), testChatID, "alice", "/lists")
	assert.Contains(t, reply, "Work (7 tasks)")
	assert.Contains(t, reply, "Home (2 tasks)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	long := "это очень длинное описание задачи которое надо обрезать по рунам а не по байтам"
	got := truncate(long, 20)
	assert.Len(t, []rune(got), 20)
	assert.Contains(t, got, "...")
}
