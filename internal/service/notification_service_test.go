package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shams-connect/school-needs-api/internal/models"
	"github.com/shams-connect/school-needs-api/internal/notify"
	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
)

type fakeNotificationRepo struct {
	items      map[string]models.Notification
	lastFilter models.NotificationFilter
	allRead    []string
	err        error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{items: make(map[string]models.Notification)}
}

func (f *fakeNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	out := make([]models.Notification, 0, len(f.items))
	for _, n := range f.items {
		if n.UserID == filter.UserID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range f.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	if notification.ID == "" {
		notification.ID = "generated"
	}
	f.items[notification.ID] = *notification
	return nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID string) (int64, error) {
	n, ok := f.items[id]
	if !ok || n.UserID != userID {
		return 0, nil
	}
	n.Read = true
	f.items[id] = n
	return 1, nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	f.allRead = append(f.allRead, userID)
	return nil
}

func TestNotificationServiceNotifyDeliversToSubscriber(t *testing.T) {
	repo := newFakeNotificationRepo()
	hub := notify.NewHub(4, zap.NewNop())
	defer hub.Close()
	svc := NewNotificationService(repo, hub, zap.NewNop())

	sub := svc.Subscribe("user-1")
	defer sub.Close()

	err := svc.Notify(context.Background(), &models.Notification{
		UserID: "user-1",
		Type:   models.NotificationTypeSystem,
		Title:  "Welcome",
	})
	require.NoError(t, err)
	require.Len(t, repo.items, 1)

	select {
	case event := <-sub.Events():
		assert.Equal(t, "Welcome", event.Notification.Title)
	case <-time.After(time.Second):
		t.Fatal("expected an event on the subscription")
	}
}

func TestNotificationServiceNotifyFailsWhenStoreFails(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.err = sql.ErrConnDone
	svc := NewNotificationService(repo, notify.NewHub(4, zap.NewNop()), zap.NewNop())

	err := svc.Notify(context.Background(), &models.Notification{UserID: "user-1"})
	require.Error(t, err)
}

func TestNotificationServiceMarkReadScopedToUser(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.items["n-1"] = models.Notification{ID: "n-1", UserID: "user-1"}
	svc := NewNotificationService(repo, notify.NewHub(4, zap.NewNop()), zap.NewNop())

	err := svc.MarkRead(context.Background(), "n-1", "user-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.MarkRead(context.Background(), "n-1", "user-1"))
	assert.True(t, repo.items["n-1"].Read)
}

func TestNotificationServiceListClampsPagination(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, notify.NewHub(4, zap.NewNop()), zap.NewNop())

	_, _, err := svc.List(context.Background(), models.NotificationFilter{UserID: "user-1", Page: -2, PageSize: 9999})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, 20, repo.lastFilter.PageSize)
}

func TestNotificationServiceUnreadCount(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.items["n-1"] = models.Notification{ID: "n-1", UserID: "user-1"}
	repo.items["n-2"] = models.Notification{ID: "n-2", UserID: "user-1", Read: true}
	svc := NewNotificationService(repo, notify.NewHub(4, zap.NewNop()), zap.NewNop())

	count, err := svc.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
