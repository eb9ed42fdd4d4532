package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/auth"
	"github.com/sakif/clothconnect/internal/metrics"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/notify"
	"github.com/sakif/clothconnect/internal/repository/sqlite"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

type sentMail struct {
	To, Subject, Body string
}

// fakeMailer records every message instead of sending it.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error // returned from Send when set
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	return m.sent[len(m.sent)-1]
}

// tokenFromLink pulls the raw token out of a mailed link such as
// http://localhost:3000/verify-email/<token>.
func tokenFromLink(t *testing.T, body, path string) string {
	t.Helper()
	i := strings.LastIndex(body, path)
	if i < 0 {
		t.Fatalf("mail body %q has no %s link", body, path)
	}
	return strings.TrimSpace(body[i+len(path):])
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv wires every service against one in-memory database.
type testEnv struct {
	store       *sqlite.DB
	mailer      *fakeMailer
	hub         *notify.Hub
	metrics     *metrics.Metrics
	notifier    *NotificationService
	auth        *AuthService
	donations   *DonationService
	pickups     *PickupService
	collections *CollectionService
	users       *UserService
	analytics   *AnalyticsService
	impact      *ImpactService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, AuthConfig{FrontendURL: "http://localhost:3000"})
}

func newTestEnvWithConfig(t *testing.T, cfg AuthConfig) *testEnv {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	logger := discardLogger()
	mailer := &fakeMailer{}
	hub := notify.NewHub(notify.DefaultBuffer, logger)
	m := metrics.New()
	notifier := NewNotificationService(store, store, hub, mailer, logger)

	return &testEnv{
		store:       store,
		mailer:      mailer,
		hub:         hub,
		metrics:     m,
		notifier:    notifier,
		auth:        NewAuthService(store, tokens, auth.NewPasswordServiceForTest(), mailer, cfg, logger),
		donations:   NewDonationService(store, notifier, m, logger),
		pickups:     NewPickupService(store, notifier, m, logger),
		collections: NewCollectionService(store, m, logger),
		users:       NewUserService(store, store, logger),
		analytics:   NewAnalyticsService(store, logger),
		impact:      NewImpactService(store),
	}
}

func (env *testEnv) createUser(t *testing.T, name, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: email, Role: role, PasswordHash: "hash"}
	if err := env.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func donationInput(clothesType string, qty int) DonationInput {
	raw, _ := json.Marshal(qty)
	return DonationInput{
		Title:       "Winter clothes",
		ClothesType: clothesType,
		Quantity:    raw,
		Address:     "12 MG Road",
		City:        "Bengaluru",
		Pincode:     "560001",
		Phone:       "9999999999",
		PickupDate:  "2025-03-01",
		Message:     "Please call before coming",
	}
}

func rawQty(n int) json.RawMessage {
	raw, _ := json.Marshal(n)
	return raw
}

// assertKind fails unless err wraps the given sentinel from apperror.
func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want %v", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want it to wrap %v", err, kind)
	}
}

// assertMessage fails unless err is an *AppError carrying msg.
func assertMessage(t *testing.T, err error, msg string) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v (%T), want *apperror.AppError", err, err)
	}
	if appErr.Message != msg {
		t.Errorf("message = %q, want %q", appErr.Message, msg)
	}
}
