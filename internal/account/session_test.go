package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginToken(t *testing.T, h *harness, email string) string {
	t.Helper()
	resp, err := h.svc.Login(context.Background(), email, goodPassword)
	require.NoError(t, err)
	return resp.AccessToken
}

func TestAuthenticate_NoRenewalWithPlentyOfTime(t *testing.T) {
	h := newHarness(t)
	u := h.registerActive(t, "a@b.com")
	token := loginToken(t, h, "a@b.com")

	// 1000 seconds left
	h.clock.Advance(360*time.Minute - 1000*time.Second)

	sess, err := h.svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.User.ID)
	assert.Empty(t, sess.RenewedToken)
	assert.Equal(t, 0, h.metrics.renewals)
}

func TestAuthenticate_RenewsNearExpiry(t *testing.T) {
	h := newHarness(t)
	h.registerActive(t, "a@b.com")
	token := loginToken(t, h, "a@b.com")

	// 200 seconds left
	h.clock.Advance(360*time.Minute - 200*time.Second)

	sess, err := h.svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	require.NotEmpty(t, sess.RenewedToken)
	assert.True(t, h.clock.Now().Add(360*time.Minute).Equal(sess.RenewedExpiresAt))
	assert.Equal(t, 1, h.metrics.renewals)

	claims, err := h.tokens.Verify(sess.RenewedToken)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Email())

	// the presented token is not revoked
	again, err := h.svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.NotEmpty(t, again.RenewedToken)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	h := newHarness(t)
	h.registerActive(t, "a@b.com")
	token := loginToken(t, h, "a@b.com")

	h.clock.Advance(360 * time.Minute)

	_, err := h.svc.Authenticate(context.Background(), token)
	requireKind(t, err, KindInvalidToken)
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Authenticate(context.Background(), "not-a-jwt")
	requireKind(t, err, KindInvalidToken)
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	h := newHarness(t)
	u := h.registerActive(t, "a@b.com")
	token := loginToken(t, h, "a@b.com")

	require.NoError(t, h.store.Delete(context.Background(), u.ID))

	_, err := h.svc.Authenticate(context.Background(), token)
	requireKind(t, err, KindUserNotFound)
}
