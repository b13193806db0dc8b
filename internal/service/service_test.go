package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"selfmanager/internal/database"
	"selfmanager/internal/models"
	"selfmanager/internal/notify"
	"selfmanager/internal/repository"
	"selfmanager/internal/security"
	"selfmanager/internal/validation"
)

type testEnv struct {
	db         *database.DB
	users      *repository.UserRepository
	families   *repository.FamilyRepository
	messages   *repository.MessageRepository
	sender     *notify.RecordingSender
	dispatcher *notify.Dispatcher
	chat       *ChatService
	family     *FamilyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations("../../migrations"))

	env := &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		families: repository.NewFamilyRepository(db),
		messages: repository.NewMessageRepository(db),
		sender:   &notify.RecordingSender{},
	}
	env.dispatcher = notify.NewDispatcher(env.sender, env.users, 5*time.Second)
	env.chat = NewChatService(env.messages, env.families, env.dispatcher)
	env.family = NewFamilyService(env.families, env.users, env.chat)
	return env
}

func (e *testEnv) createUser(t *testing.T, username, firstName string) *models.User {
	t.Helper()
	u, err := e.users.CreateUser(username, username+"@example.com", "", firstName, "")
	require.NoError(t, err)
	return u
}

// familyOf creates a family owned by owner and admits each member through a join request
func (e *testEnv) familyOf(t *testing.T, name string, owner *models.User, members ...*models.User) *models.Family {
	t.Helper()
	family, err := e.family.CreateFamily(owner.ID, name, true)
	require.NoError(t, err)

	for _, m := range members {
		require.NoError(t, e.family.RequestToJoin(m.ID, family.FamilyCode, false))
		jr, err := e.families.GetJoinRequest(family.ID, m.ID)
		require.NoError(t, err)
		require.NoError(t, e.family.HandleRequest(owner.ID, family.ID, jr.ID, true))
	}
	return family
}

func requireDenied(t *testing.T, err error, reason DenialReason) {
	t.Helper()
	ae, ok := AsAuthorizationError(err)
	require.True(t, ok, "expected authorization error, got %v", err)
	require.Equal(t, reason, ae.Reason)
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	errs, ok := validation.AsErrors(err)
	require.True(t, ok, "expected validation error, got %v", err)
	require.Contains(t, errs, field)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent map[string]string
}

func (m *fakeMailer) SendOTPEmail(_ context.Context, to string, _ OTPPurpose, otp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = map[string]string{}
	}
	m.sent[to] = otp
	return nil
}

func (m *fakeMailer) last(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[to]
}

type fakeGoogle struct {
	emails map[string]string
}

func (g fakeGoogle) FetchEmail(_ context.Context, accessToken string) (string, error) {
	if email, ok := g.emails[accessToken]; ok {
		return email, nil
	}
	return "", security.ErrInvalidToken
}
