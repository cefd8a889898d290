package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geocoder89/speakup/internal/auth"
	"github.com/geocoder89/speakup/internal/config"
	"github.com/geocoder89/speakup/internal/domain/user"
	"github.com/geocoder89/speakup/internal/repo/memory"
	"github.com/geocoder89/speakup/internal/security"
	"github.com/geocoder89/speakup/internal/storage"
)

const (
	testBucket   = "avatars"
	goodPassword = "Passw0rd1"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentMail struct {
	kind  string
	email string
	token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendConfirmation(_ context.Context, email, token string) error {
	return m.record("confirm", email, token)
}

func (m *fakeMailer) SendReset(_ context.Context, email, token string) error {
	return m.record("reset", email, token)
}

func (m *fakeMailer) record(kind, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: kind, email: email, token: token})
	return nil
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	return m.sent[len(m.sent)-1]
}

type countingRecorder struct {
	mu       sync.Mutex
	events   map[string]int
	renewals int
}

func (r *countingRecorder) AuthEvent(event, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string]int)
	}
	r.events[event+"/"+result]++
}

func (r *countingRecorder) TokenRenewed() {
	r.mu.Lock()
	r.renewals++
	r.mu.Unlock()
}

type harness struct {
	svc     *Service
	store   *memory.UsersRepo
	mailer  *fakeMailer
	storage *storage.MemoryStorage
	tokens  *auth.Manager
	clock   *clock
	metrics *countingRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	tokens, err := auth.NewManager(config.JWT{Secret: "test-secret", Algorithm: "HS256", AccessTTL: 360 * time.Minute}, clk.Now)
	require.NoError(t, err)

	h := &harness{
		store:   memory.NewUsersRepo(),
		mailer:  &fakeMailer{},
		storage: storage.NewMemoryStorage("http://minio.local"),
		tokens:  tokens,
		clock:   clk,
		metrics: &countingRecorder{},
	}

	h.svc, err = NewService(Deps{
		Store:   h.store,
		Hasher:  security.NewBcryptHasher(4),
		Tokens:  tokens,
		Mailer:  h.mailer,
		Storage: h.storage,
		Metrics: h.metrics,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:   clk.Now,
	}, Settings{
		VerificationTTL:  30 * time.Minute,
		RenewalThreshold: 300 * time.Second,
		AvatarBucket:     testBucket,
	})
	require.NoError(t, err)

	return h
}

// registerActive registers email and confirms it.
func (h *harness) registerActive(t *testing.T, email string) user.User {
	t.Helper()
	ctx := context.Background()

	_, err := h.svc.Register(ctx, RegisterInput{Email: email, Password: goodPassword})
	require.NoError(t, err)

	_, err = h.svc.ConfirmEmail(ctx, email, h.mailer.last(t).token)
	require.NoError(t, err)

	u, err := h.store.FindByEmail(ctx, email)
	require.NoError(t, err)
	return u
}

func (h *harness) makeAdmin(t *testing.T, email string) user.User {
	t.Helper()
	ctx := context.Background()

	created, err := h.svc.EnsureAdmin(ctx, email, goodPassword)
	require.NoError(t, err)
	require.True(t, created)

	u, err := h.store.FindByEmail(ctx, email)
	require.NoError(t, err)
	return u
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}

type failingStore struct {
	*memory.UsersRepo
	err error
}

func (f failingStore) FindByEmail(context.Context, string) (user.User, error) {
	return user.User{}, f.err
}

var errStoreDown = errors.New("store down")

// staleStore serves a fixed snapshot on reads while writes hit the real store.
type staleStore struct {
	*memory.UsersRepo
	snapshot user.User
}

func (s staleStore) FindByEmail(context.Context, string) (user.User, error) {
	return s.snapshot, nil
}
