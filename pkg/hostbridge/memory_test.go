package hostbridge

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryNoTab(t *testing.T) {
	m := NewMemory()
	_, err := m.ActiveTab(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveTab)
	_, err = m.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveTab)
}

func TestMemorySnapshotSetsTitle(t *testing.T) {
	m := NewMemory()
	m.SetPage("https://shop.example.com/", fixturePage, nil)

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Shop", snap.Title)

	tab, err := m.ActiveTab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Shop", tab.Title)
	assert.Equal(t, "shop.example.com", tab.Hostname())
}

func TestMemoryCookies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SetCookie(ctx, "https://shop.example.com/cart", CookieRecord{Name: "sid", Value: "1"}))
	require.NoError(t, m.SetCookie(ctx, "https://shop.example.com/", CookieRecord{Name: "pref", Value: "dark", Domain: ".example.com"}))
	require.NoError(t, m.SetCookie(ctx, "https://other.test/", CookieRecord{Name: "x", Value: "y"}))
	require.NoError(t, m.SetCookie(ctx, "https://shop.example.com/", CookieRecord{
		Name: "old", Value: "gone", Expires: time.Now().Add(-time.Hour),
	}))

	got, err := m.Cookies(ctx, "shop.example.com")
	require.NoError(t, err)
	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"sid", "pref"}, names)

	// upsert keeps one record per name, domain and path
	require.NoError(t, m.SetCookie(ctx, "https://shop.example.com/", CookieRecord{Name: "sid", Value: "2"}))
	got, _ = m.Cookies(ctx, "shop.example.com")
	assert.Len(t, got, 2)

	require.NoError(t, m.RemoveCookie(ctx, CookieURL(CookieRecord{Domain: ".example.com", Path: "/"}), "pref"))
	require.NoError(t, m.RemoveCookie(ctx, "https://shop.example.com", "sid"))
	got, _ = m.Cookies(ctx, "shop.example.com")
	assert.Empty(t, got)
}

func TestMemoryFetch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetResponse("options", "https://api.example.com/", &Response{StatusCode: 204})

	resp, err := Fetch(ctx, m, nil, http.MethodOptions, "https://api.example.com/", nil)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	_, err = m.Fetch(ctx, http.MethodGet, "https://api.example.com/", nil)
	assert.Error(t, err)

	boom := errors.New("offline")
	m.FailFetch(boom)
	_, err = m.Fetch(ctx, http.MethodOptions, "https://api.example.com/", nil)
	assert.ErrorIs(t, err, boom)
}

func TestMemoryHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()
	m.SetPage("https://a.example/", "", nil)
	_, err := m.Cookies(ctx, "a.example")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCookieURL(t *testing.T) {
	assert.Equal(t, "https://example.com/app", CookieURL(CookieRecord{Domain: ".example.com", Path: "/app", Secure: true}))
	assert.Equal(t, "http://example.com/", CookieURL(CookieRecord{Domain: "example.com"}))
}
