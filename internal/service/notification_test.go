package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
)

func TestNotificationCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	live := env.hub.Connect("user1")
	defer env.hub.Disconnect(live)

	n, err := env.notifier.Create(ctx, "user1", CreateInput{Title: "Hello", Message: "World"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if n.Type != model.NotifyInfo || n.Priority != model.PriorityMedium {
		t.Errorf("defaults = %s/%s, want info/medium", n.Type, n.Priority)
	}

	select {
	case got := <-live.C:
		if got.ID != n.ID {
			t.Errorf("pushed %q, want %q", got.ID, n.ID)
		}
	default:
		t.Error("notification was not pushed to the live connection")
	}
}

func TestNotificationCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateInput
		message string
	}{
		{"missing title", CreateInput{Message: "x"}, "Title and message are required"},
		{"bad type", CreateInput{Title: "t", Message: "m", Type: "party"}, "Invalid notification type"},
		{"bad priority", CreateInput{Title: "t", Message: "m", Priority: "meh"}, "Invalid notification priority"},
		{"bad action", CreateInput{Title: "t", Message: "m", Action: model.NotificationAction{Type: "popup"}}, "Invalid action type"},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.notifier.Create(context.Background(), "user1", tt.input)
			assertKind(t, err, apperror.ErrValidation)
			assertMessage(t, err, tt.message)
		})
	}
}

func TestNotificationReadLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, _ := env.notifier.Create(ctx, "user1", CreateInput{Title: "A", Message: "a"})
	env.notifier.Create(ctx, "user1", CreateInput{Title: "B", Message: "b"})
	env.notifier.Create(ctx, "user2", CreateInput{Title: "C", Message: "c"})

	if n, _ := env.notifier.UnreadCount(ctx, "user1"); n != 2 {
		t.Errorf("UnreadCount() = %d, want 2", n)
	}

	// Someone else's notification looks like it does not exist.
	_, err := env.notifier.MarkRead(ctx, a.ID, "user2")
	assertKind(t, err, apperror.ErrNotFound)

	read, err := env.notifier.MarkRead(ctx, a.ID, "user1")
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if !read.Read {
		t.Error("Read = false after MarkRead")
	}

	if n, _ := env.notifier.MarkAllRead(ctx, "user1"); n != 1 {
		t.Errorf("MarkAllRead() = %d, want 1", n)
	}
	if n, _ := env.notifier.UnreadCount(ctx, "user1"); n != 0 {
		t.Errorf("UnreadCount() = %d, want 0", n)
	}

	if err := env.notifier.Delete(ctx, a.ID, "user1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	list, _ := env.notifier.List(ctx, "user1")
	if len(list) != 1 {
		t.Errorf("List() = %d, want 1 after delete", len(list))
	}
}

func TestNotify_MailFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	env.mailer.err = errors.New("smtp down")

	env.notifier.Notify(ctx, model.Notification{UserID: u.ID, Title: "Hi", Message: "there"}, true)

	list, _ := env.notifier.List(ctx, u.ID)
	if len(list) != 1 {
		t.Errorf("List() = %d, want the notification stored despite the mail error", len(list))
	}
}
