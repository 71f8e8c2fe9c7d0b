package kv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testHashKey  = []byte("12345678901234567890123456789012")
	testBlockKey = []byte("abcdefghijklmnopqrstuvwxyzABCDEF")
)

func testCookieConfig() CookieConfig {
	return CookieConfig{HashKey: testHashKey, BlockKey: testBlockKey}
}

// nextRequest builds a follow-up request carrying the cookies set on rec.
func nextRequest(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		req.AddCookie(c)
	}
	return req
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCookieProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, err := NewCookieProvider(testCookieConfig())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	st, err := p.Open(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	_, ok, err := st.Get(ctx, "userId")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, st.Set(ctx, "userId", "7"))
	require.NoError(t, st.Set(ctx, "userName", "Alex"))
	require.Len(t, rec.Header().Values("Set-Cookie"), 1, "later writes replace the earlier cookie")

	st2, err := p.Open(httptest.NewRecorder(), nextRequest(rec))
	require.NoError(t, err)
	v, ok, err := st2.Get(ctx, "userId")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "7", v)
	v, ok, err = st2.Get(ctx, "userName")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Alex", v)
}

func TestCookieProviderDeleteLastKeyExpiresCookie(t *testing.T) {
	ctx := context.Background()
	p, err := NewCookieProvider(testCookieConfig())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	st, _ := p.Open(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, st.Set(ctx, "userId", "3"))

	rec2 := httptest.NewRecorder()
	st2, _ := p.Open(rec2, nextRequest(rec))
	require.NoError(t, st2.Delete(ctx, "userId"))

	c := findCookie(rec2.Result().Cookies(), defaultStorageCookie)
	require.NotNil(t, c)
	require.Equal(t, -1, c.MaxAge)
}

func TestCookieProviderDeleteMissingKeyWritesNothing(t *testing.T) {
	p, err := NewCookieProvider(testCookieConfig())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	st, _ := p.Open(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, st.Delete(context.Background(), "userId"))
	require.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestCookieProviderIgnoresTamperedCookie(t *testing.T) {
	p, err := NewCookieProvider(testCookieConfig())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: defaultStorageCookie, Value: "not-a-valid-payload"})
	st, err := p.Open(httptest.NewRecorder(), req)
	require.NoError(t, err)

	_, ok, err := st.Get(context.Background(), "userId")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCookieConfigValidation(t *testing.T) {
	_, err := NewCookieProvider(CookieConfig{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewCookieProvider(CookieConfig{HashKey: testHashKey, BlockKey: []byte("short")})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestReplaceCookieKeepsOtherCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	http.SetCookie(rec, &http.Cookie{Name: "other", Value: "x"})
	replaceCookie(rec, &http.Cookie{Name: "wt_storage", Value: "a"})
	replaceCookie(rec, &http.Cookie{Name: "wt_storage", Value: "b"})

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	require.Equal(t, "x", findCookie(cookies, "other").Value)
	require.Equal(t, "b", findCookie(cookies, "wt_storage").Value)
}
