package services

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/cache"
	"github.com/SAP-F-2025/studyroom-service/internal/config"
	"github.com/SAP-F-2025/studyroom-service/internal/events"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/realtime"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/studyroom-service/internal/storage"
	"github.com/SAP-F-2025/studyroom-service/internal/testutil"
)

const testMailTopic = "mail.password_reset"

type stubAssistant struct {
	reply  string
	err    error
	prompt string
}

func (s *stubAssistant) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

type stubIdentityProvider struct {
	identity *repositories.ExternalIdentity
	err      error
}

func (s *stubIdentityProvider) SigninURL(string) string { return "https://sso.example.com/login" }

func (s *stubIdentityProvider) Exchange(context.Context, string, string) (*repositories.ExternalIdentity, error) {
	return s.identity, s.err
}

type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	redis     *miniredis.Miniredis
	publisher *events.MockEventPublisher
	hub       *realtime.Hub
	sessions  *auth.SessionStore
	tokens    *auth.ResetTokenManager
	avatars   *storage.AvatarStorage
	assistant *stubAssistant
	sso       *stubIdentityProvider
	manager   ServiceManager
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hub := realtime.NewHub(discardLogger())
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })

	avatars, err := storage.NewAvatarStorage(filepath.Join(t.TempDir(), "profile_pics"))
	require.NoError(t, err)

	env := &testEnv{
		db:        db,
		repo:      postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, RedisClient: client}),
		redis:     mr,
		publisher: events.NewMockEventPublisher(discardLogger()),
		hub:       hub,
		sessions:  auth.NewSessionStore(client, time.Hour),
		tokens:    auth.NewResetTokenManager("test-secret", time.Hour),
		avatars:   avatars,
		assistant: &stubAssistant{reply: "42"},
		sso:       &stubIdentityProvider{},
	}

	env.manager = NewServiceManager(Dependencies{
		DB:               db,
		Repo:             env.repo,
		Cache:            cache.NewCacheManager(client),
		Logger:           discardLogger(),
		Sessions:         env.sessions,
		Hasher:           auth.NewPasswordHasherWithCost(4),
		Tokens:           env.tokens,
		Publisher:        env.publisher,
		Hub:              hub,
		Avatars:          avatars,
		Assistant:        env.assistant,
		IdentityProvider: env.sso,
	}, ServiceManagerConfig{
		PublicBaseURL: "http://study.test",
		MailTopic:     testMailTopic,
	})
	require.NoError(t, env.manager.Initialize(context.Background()))

	return env
}

// register signs up a user through the auth service
func (e *testEnv) register(t *testing.T, username, email, password string) *AuthResult {
	t.Helper()
	res, err := e.manager.Auth().Register(context.Background(), &RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	return res
}

// connect registers a socket client for identity with the hub
func (e *testEnv) connect(t *testing.T, identity auth.Identity) *realtime.Client {
	t.Helper()
	c := realtime.NewClient(nil, e.hub, identity, "test", config.WebSocketConfig{SendBufferSize: 16}, nil)
	require.NoError(t, e.hub.Register(c))
	return c
}

func drainFrames(c *realtime.Client) []string {
	var out []string
	for {
		select {
		case msg, ok := <-c.Messages():
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestServiceManager_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	assert.True(t, env.manager.IsInitialized())
	require.NoError(t, env.manager.Initialize(context.Background()), "second call is a no-op")
	assert.NoError(t, env.manager.HealthCheck(context.Background()))

	require.NoError(t, env.manager.Shutdown(context.Background()))
	assert.Error(t, env.manager.HealthCheck(context.Background()))
}

func TestServiceManager_RequiresDependencies(t *testing.T) {
	sm := NewServiceManager(Dependencies{Logger: discardLogger()}, ServiceManagerConfig{})

	assert.Error(t, sm.Initialize(context.Background()))
	assert.False(t, sm.IsInitialized())
	assert.Panics(t, func() { sm.Auth() })
}

func TestAssistantService_Ask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	who := auth.Identity{UserID: 1, Username: "alice"}

	_, err := env.manager.Assistant().Ask(ctx, who, "   ")
	assert.ErrorIs(t, err, ErrMessageEmpty)
	assert.Empty(t, env.assistant.prompt)

	reply, err := env.manager.Assistant().Ask(ctx, who, " What is 6 x 7? ")
	require.NoError(t, err)
	assert.Equal(t, &models.AssistantReply{Response: "42"}, reply)
	assert.Equal(t, "What is 6 x 7?", env.assistant.prompt)

	env.assistant.err = assert.AnError
	_, err = env.manager.Assistant().Ask(ctx, who, "again")
	assert.ErrorIs(t, err, ErrAssistantUnavailable)
}
