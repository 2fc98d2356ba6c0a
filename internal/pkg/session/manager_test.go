package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"voucher-portal/internal/domain/auth"
	"voucher-portal/internal/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func newTestManager(t *testing.T) (*Manager, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore(0)
	m := NewManager(store, zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
	return m, store
}

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString(body) + ".sig"
}

func tokenExpiringIn(t *testing.T, d time.Duration, extra map[string]any) string {
	claims := map[string]any{
		"sub":  "17",
		"name": "Wanjiru",
		"role": "Manager",
		"exp":  fixedNow.Add(d).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return makeToken(t, claims)
}

func TestSession_TokenSlots(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := m.Scope("scope-1")

	token, err := s.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.SetToken(ctx, "abc"))
	require.NoError(t, s.SetRefreshToken(ctx, "refresh"))

	token, err = s.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	// same scope seen through another handle
	token, err = m.Scope("scope-1").GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	refresh, err := s.GetRefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refresh)
}

func TestSession_ClearAuthDataIsIdempotent(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	s := m.Scope("scope-1")

	require.NoError(t, s.ClearAuthData(ctx))

	require.NoError(t, s.SetToken(ctx, "abc"))
	require.NoError(t, s.SetRefreshToken(ctx, "r"))
	require.NoError(t, s.SetUser(ctx, &auth.User{ID: "1"}))
	assert.Equal(t, 3, store.Len())

	require.NoError(t, s.ClearAuthData(ctx))
	require.NoError(t, s.ClearAuthData(ctx))
	assert.Equal(t, 0, store.Len())

	token, err := s.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	user, err := s.GetUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSession_UserRoundTrip(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	s := m.Scope("scope-1")

	center := int64(3)
	active := true
	u := &auth.User{
		ID:              "17",
		Name:            "Wanjiru",
		Role:            "Manager",
		ServiceCenterID: &center,
		Email:           "w@example.com",
		IsActive:        &active,
		Permissions:     []string{"Reports", "Users"},
	}
	require.NoError(t, s.SetUser(ctx, u))

	got, err := s.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	// optional fields collapse to absent
	require.NoError(t, s.SetUser(ctx, &auth.User{ID: "1", Permissions: []string{}}))
	got, err = s.GetUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, got.ServiceCenterID)
	assert.Nil(t, got.IsActive)

	require.NoError(t, store.Set(ctx, "scope-1", UserKey, "{not json"))
	got, err = s.GetUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSession_IsAuthenticated(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := m.Scope("scope-1")

	assert.False(t, s.IsAuthenticated(ctx), "no token")

	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"future expiry", tokenExpiringIn(t, time.Hour, nil), true},
		{"one second left", tokenExpiringIn(t, time.Second, nil), true},
		{"expires this second", tokenExpiringIn(t, 0, nil), false},
		{"past expiry", tokenExpiringIn(t, -time.Minute, nil), false},
		{"no expiry claim", makeToken(t, map[string]any{"sub": "1"}), false},
		{"malformed", "garbage", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, s.SetToken(ctx, tc.token))
			assert.Equal(t, tc.want, s.IsAuthenticated(ctx))
		})
	}
}

func TestSession_NeedsRefresh(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := m.Scope("scope-1")

	assert.False(t, s.NeedsRefresh(ctx), "no token")

	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"far from expiry", tokenExpiringIn(t, time.Hour, nil), false},
		{"just over threshold", tokenExpiringIn(t, 301*time.Second, nil), false},
		{"exactly at threshold", tokenExpiringIn(t, 300*time.Second, nil), false},
		{"inside threshold", tokenExpiringIn(t, 299*time.Second, nil), true},
		{"expiring now", tokenExpiringIn(t, 0, nil), true},
		{"already expired", tokenExpiringIn(t, -time.Hour, nil), true},
		{"undecodable", "a.@@@.c", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, s.SetToken(ctx, tc.token))
			assert.Equal(t, tc.want, s.NeedsRefresh(ctx))
		})
	}
}

func TestSession_Status(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := m.Scope("scope-1")

	assert.Equal(t, auth.Status{}, s.Status(ctx))

	require.NoError(t, s.SetToken(ctx, tokenExpiringIn(t, 2*time.Minute, nil)))
	status := s.Status(ctx)
	assert.True(t, status.Authenticated)
	assert.True(t, status.NeedsRefresh)
	require.NotNil(t, status.ExpiresAt)
	assert.Equal(t, fixedNow.Add(2*time.Minute).Unix(), status.ExpiresAt.Unix())

	require.NoError(t, s.SetToken(ctx, "broken"))
	assert.Equal(t, auth.Status{NeedsRefresh: true}, s.Status(ctx))
}

func TestSession_Login(t *testing.T) {
	t.Run("derives user and publishes", func(t *testing.T) {
		m, _ := newTestManager(t)
		ctx := context.Background()
		s := m.Scope("scope-1")

		var events []Event
		cancel := m.Subscribe(func(ev Event) { events = append(events, ev) })
		defer cancel()

		token := tokenExpiringIn(t, time.Hour, map[string]any{
			"permissions":     []string{"Reports"},
			"serviceCenterId": 12,
		})
		user, err := s.Login(ctx, &auth.LoginRequest{Token: token, RefreshToken: "r1"})
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, "17", user.ID)
		assert.Equal(t, "Wanjiru", user.Name)
		assert.Equal(t, []string{"Reports"}, user.Permissions)
		require.NotNil(t, user.ServiceCenterID)
		assert.Equal(t, int64(12), *user.ServiceCenterID)

		stored, err := s.GetUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, user, stored)

		refresh, err := s.GetRefreshToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "r1", refresh)

		require.Len(t, events, 1)
		assert.Equal(t, EventLogin, events[0].Type)
		assert.Equal(t, "scope-1", events[0].Scope)
		assert.Same(t, user, events[0].User)
	})

	t.Run("explicit permissions win over claim", func(t *testing.T) {
		m, _ := newTestManager(t)
		token := tokenExpiringIn(t, time.Hour, map[string]any{"permissions": []string{"Reports"}})

		user, err := m.Scope("s").Login(context.Background(), &auth.LoginRequest{
			Token:       token,
			Permissions: []string{"Users", "CouponSale"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Users", "CouponSale"}, user.Permissions)
	})

	t.Run("undecodable token is stored but not authenticated", func(t *testing.T) {
		m, _ := newTestManager(t)
		ctx := context.Background()
		s := m.Scope("s")

		published := 0
		m.Subscribe(func(Event) { published++ })

		user, err := s.Login(ctx, &auth.LoginRequest{Token: "not-a-token"})
		require.NoError(t, err)
		assert.Nil(t, user)

		token, err := s.GetToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "not-a-token", token)
		assert.False(t, s.IsAuthenticated(ctx))
		assert.Zero(t, published)
	})

	t.Run("rejected login drops the previous user and refresh token", func(t *testing.T) {
		for name, next := range map[string]string{
			"undecodable": "not-a-token",
			"expired":     tokenExpiringIn(t, -time.Minute, nil),
		} {
			t.Run(name, func(t *testing.T) {
				m, _ := newTestManager(t)
				ctx := context.Background()
				s := m.Scope("s")

				_, err := s.Login(ctx, &auth.LoginRequest{Token: tokenExpiringIn(t, time.Hour, nil), RefreshToken: "r1"})
				require.NoError(t, err)

				user, err := s.Login(ctx, &auth.LoginRequest{Token: next})
				require.NoError(t, err)
				assert.Nil(t, user)

				stored, err := s.GetUser(ctx)
				require.NoError(t, err)
				assert.Nil(t, stored)

				refresh, err := s.GetRefreshToken(ctx)
				require.NoError(t, err)
				assert.Empty(t, refresh)
			})
		}
	})

	t.Run("login without refresh token clears the old one", func(t *testing.T) {
		m, _ := newTestManager(t)
		ctx := context.Background()
		s := m.Scope("s")

		_, err := s.Login(ctx, &auth.LoginRequest{Token: tokenExpiringIn(t, time.Hour, nil), RefreshToken: "r1"})
		require.NoError(t, err)
		user, err := s.Login(ctx, &auth.LoginRequest{Token: tokenExpiringIn(t, 2*time.Hour, nil)})
		require.NoError(t, err)
		require.NotNil(t, user)

		refresh, err := s.GetRefreshToken(ctx)
		require.NoError(t, err)
		assert.Empty(t, refresh)
	})
}

func TestSession_Current(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		m, _ := newTestManager(t)
		user, err := m.Scope("s").Current(context.Background())
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("rebuilds missing snapshot from token", func(t *testing.T) {
		m, _ := newTestManager(t)
		ctx := context.Background()
		s := m.Scope("s")

		require.NoError(t, s.SetToken(ctx, tokenExpiringIn(t, time.Hour, map[string]any{
			"permissions": []string{"Users"},
		})))

		user, err := s.Current(ctx)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "17", user.ID)
		assert.Equal(t, []string{"Users"}, user.Permissions)

		stored, err := s.GetUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, user, stored)
	})

	t.Run("keeps snapshot permissions for same subject", func(t *testing.T) {
		m, _ := newTestManager(t)
		ctx := context.Background()
		s := m.Scope("s")

		_, err := s.Login(ctx, &auth.LoginRequest{
			Token:       tokenExpiringIn(t, time.Hour, nil),
			Permissions: []string{"Invoices"},
		})
		require.NoError(t, err)

		user, err := s.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Invoices"}, user.Permissions)
	})

	t.Run("replaces snapshot of another subject", func(t *testing.T) {
		m, _ := newTestManager(t)
		ctx := context.Background()
		s := m.Scope("s")

		require.NoError(t, s.SetUser(ctx, &auth.User{ID: "99", Permissions: []string{"Users"}}))
		require.NoError(t, s.SetToken(ctx, tokenExpiringIn(t, time.Hour, nil)))

		user, err := s.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, "17", user.ID)
		assert.Empty(t, user.Permissions)
	})

	t.Run("expired token clears session", func(t *testing.T) {
		m, store := newTestManager(t)
		ctx := context.Background()
		s := m.Scope("s")

		var events []Event
		m.Subscribe(func(ev Event) { events = append(events, ev) })

		require.NoError(t, s.SetToken(ctx, tokenExpiringIn(t, -time.Second, nil)))
		require.NoError(t, s.SetUser(ctx, &auth.User{ID: "17"}))

		user, err := s.Current(ctx)
		require.NoError(t, err)
		assert.Nil(t, user)
		assert.Equal(t, 0, store.Len())

		require.Len(t, events, 1)
		assert.Equal(t, EventExpired, events[0].Type)
		assert.Nil(t, events[0].User)
	})
}

func TestManager_Subscribe(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	var a, b int
	cancelA := m.Subscribe(func(Event) { a++ })
	m.Subscribe(func(Event) { b++ })

	require.NoError(t, m.Scope("s").Logout(ctx))
	cancelA()
	cancelA()
	require.NoError(t, m.Scope("s").Logout(ctx))

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestUserFromPayloadCopiesPermissions(t *testing.T) {
	m, _ := newTestManager(t)
	perms := []string{"Users"}

	user, err := m.Scope("s").Login(context.Background(), &auth.LoginRequest{
		Token:       tokenExpiringIn(t, time.Hour, nil),
		Permissions: perms,
	})
	require.NoError(t, err)

	perms[0] = "Reports"
	assert.Equal(t, []string{"Users"}, user.Permissions)
}
