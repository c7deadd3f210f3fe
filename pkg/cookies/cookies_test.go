package cookies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecyberx/cyberx/pkg/hostbridge"
)

func newFixture(t *testing.T) (*Editor, *hostbridge.Memory, time.Time) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	m := hostbridge.NewMemory()
	m.SetPage("https://shop.example.com/cart", "<html><title>Shop</title></html>", nil)
	require.NoError(t, m.SetCookie(ctx, "https://shop.example.com/", hostbridge.CookieRecord{
		Name: "session_id", Value: "abc", Secure: true, HTTPOnly: true, SameSite: "Lax",
	}))
	require.NoError(t, m.SetCookie(ctx, "https://shop.example.com/", hostbridge.CookieRecord{
		Name: "_ga", Value: "GA1.2", Domain: ".example.com", Expires: now.Add(3 * time.Hour),
	}))
	require.NoError(t, m.SetCookie(ctx, "https://other.test/", hostbridge.CookieRecord{Name: "x", Value: "y"}))

	e := New(m, nil)
	e.now = func() time.Time { return now }
	return e, m, now
}

func names(l *Listing) []string {
	out := make([]string, 0, len(l.Cookies))
	for _, c := range l.Cookies {
		out = append(out, c.Name)
	}
	return out
}

func TestList(t *testing.T) {
	e, _, _ := newFixture(t)

	listing, err := e.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/cart", listing.URL)
	assert.Equal(t, "shop.example.com", listing.Domain)
	assert.ElementsMatch(t, []string{"session_id", "_ga"}, names(listing))

	for _, c := range listing.Cookies {
		switch c.Name {
		case "session_id":
			assert.Equal(t, "Session", c.Expiry)
			assert.Equal(t, "Lax", c.SameSite)
			assert.True(t, c.Secure)
		case "_ga":
			assert.Equal(t, "3 hours from now", c.Expiry)
			assert.Equal(t, SameSiteUnspecified, c.SameSite)
		}
	}
}

func TestListFilter(t *testing.T) {
	e, _, _ := newFixture(t)

	listing, err := e.List(context.Background(), "sess*")
	require.NoError(t, err)
	assert.Equal(t, []string{"session_id"}, names(listing))

	listing, err = e.List(context.Background(), "{_ga,_gid}")
	require.NoError(t, err)
	assert.Equal(t, []string{"_ga"}, names(listing))

	_, err = e.List(context.Background(), "[")
	assert.Error(t, err)
}

func TestListNoTab(t *testing.T) {
	e := New(hostbridge.NewMemory(), nil)
	_, err := e.List(context.Background(), "")
	assert.ErrorIs(t, err, hostbridge.ErrNoActiveTab)
}

func TestAdd(t *testing.T) {
	e, m, _ := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, e.Add(ctx, "", "v"), ErrEmptyCookie)
	assert.ErrorIs(t, e.Add(ctx, "n", ""), ErrEmptyCookie)

	require.NoError(t, e.Add(ctx, "debug", "1"))
	got, err := m.Cookies(ctx, "shop.example.com")
	require.NoError(t, err)
	var added *hostbridge.CookieRecord
	for i := range got {
		if got[i].Name == "debug" {
			added = &got[i]
		}
	}
	require.NotNil(t, added)
	assert.Equal(t, "shop.example.com", added.Domain)
	assert.Equal(t, "/", added.Path)
	assert.Equal(t, "1", added.Value)
}

func TestDelete(t *testing.T) {
	e, _, _ := newFixture(t)
	ctx := context.Background()

	n, err := e.Delete(ctx, "_ga")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	listing, err := e.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"session_id"}, names(listing))

	_, err = e.Delete(ctx, "_ga")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExport(t *testing.T) {
	assert.Equal(t, "", Export(nil))
	assert.Equal(t, "a=1; b=x=y", Export([]hostbridge.CookieRecord{
		{Name: "a", Value: "1"},
		{Name: "b", Value: "x=y"},
	}))

	e, _, _ := newFixture(t)
	listing, err := e.List(context.Background(), "sess*")
	require.NoError(t, err)
	assert.Equal(t, "session_id=abc", Export(listing.Records()))
}
