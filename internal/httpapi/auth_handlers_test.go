package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"vidmark.org/internal/auth"
	"vidmark.org/internal/media"
	"vidmark.org/internal/stream"
	"vidmark.org/internal/video"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()

	tokens := auth.NewTokens([]byte("access-secret"), []byte("refresh-secret"),
		auth.WithIssuer("vidmark"))
	authSvc := auth.NewService(auth.NewMemoryStore(), tokens,
		auth.WithBcryptCost(bcrypt.MinCost))

	disk, err := media.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	videoSvc := video.NewService(video.NewMemoryStore(), disk)

	return New(ReadyProbe{}, authSvc, videoSvc, stream.New(), Options{
		Version:    "test",
		UploadDir:  disk.Dir(),
		RateBurst:  1000,
		RatePerSec: 1000,
	})
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// Full session walk-through: register, duplicate register, bad login, login,
// refresh, logout, refresh without a cookie.
func TestAuthSessionLifecycle(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Handler())
	defer srv.Close()

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}
	creds := map[string]string{"email": "ops@example.com", "password": "s3cret"}

	// Registration sets the refresh cookie site-wide and returns a token pair.
	resp := postJSON(t, client, srv.URL+"/registration", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("registration status = %d", resp.StatusCode)
	}
	if path := cookiePath(resp, refreshCookieName); path != sitePath {
		t.Fatalf("registration cookie path = %q, want %q", path, sitePath)
	}
	var reg authResponse
	decodeBody(t, resp, &reg)
	if reg.AccessToken == "" {
		t.Fatal("registration returned no access token")
	}
	if reg.UserInfo.Email != "ops@example.com" {
		t.Fatalf("unexpected user info: %+v", reg.UserInfo)
	}
	if !hasCookie(jar, srv.URL, refreshCookieName) {
		t.Fatal("registration did not set the refresh cookie")
	}

	// Same email again is a 400, not a 500.
	resp = postJSON(t, client, srv.URL+"/registration", creds)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate registration status = %d", resp.StatusCode)
	}
	var dup map[string]any
	decodeBody(t, resp, &dup)
	if msg, _ := dup["error"].(string); !strings.Contains(msg, "ops@example.com") {
		t.Fatalf("duplicate error does not name the email: %v", dup)
	}

	// Wrong password is rejected with 401.
	resp = postJSON(t, client, srv.URL+"/login",
		map[string]string{"email": "ops@example.com", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Correct credentials log in; the cookie is again site-wide.
	resp = postJSON(t, client, srv.URL+"/login", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	if path := cookiePath(resp, refreshCookieName); path != sitePath {
		t.Fatalf("login cookie path = %q, want %q", path, sitePath)
	}
	var login authResponse
	decodeBody(t, resp, &login)
	if login.AccessToken == "" {
		t.Fatal("login returned no access token")
	}

	// Refresh rotates the cookie and mints a different access token.
	resp, err := client.Get(srv.URL + "/refresh_token")
	if err != nil {
		t.Fatalf("GET /refresh_token: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	// Rotated cookie only travels back to the refresh endpoint.
	if path := cookiePath(resp, refreshCookieName); path != refreshPath {
		t.Fatalf("rotated cookie path = %q, want %q", path, refreshPath)
	}
	var refreshed refreshResponse
	decodeBody(t, resp, &refreshed)
	if !refreshed.OK || refreshed.AccessToken == "" {
		t.Fatalf("unexpected refresh response: %+v", refreshed)
	}
	if refreshed.AccessToken == login.AccessToken {
		t.Fatal("refresh returned the same access token")
	}
	if refreshed.UserInfo == nil || refreshed.UserInfo.Email != "ops@example.com" {
		t.Fatalf("refresh user info missing: %+v", refreshed.UserInfo)
	}

	// Logout clears the path-scoped cookie.
	resp = postJSON(t, client, srv.URL+"/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == refreshCookieName && c.MaxAge < 0 {
			cleared = true
			if c.Path != refreshPath {
				t.Fatalf("logout cookie path = %q", c.Path)
			}
		}
	}
	resp.Body.Close()
	if !cleared {
		t.Fatal("logout did not clear the refresh cookie")
	}

	// A client with no cookie at all gets the uniform denial shape.
	bare := &http.Client{}
	resp, err = bare.Get(srv.URL + "/refresh_token")
	if err != nil {
		t.Fatalf("GET /refresh_token: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("cookieless refresh status = %d", resp.StatusCode)
	}
	var denied refreshResponse
	decodeBody(t, resp, &denied)
	if denied.OK || denied.AccessToken != "" {
		t.Fatalf("unexpected denial shape: %+v", denied)
	}
}

func TestRefreshRejectsTamperedCookie(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/refresh_token", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "not-a-jwt"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /refresh_token: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var denied refreshResponse
	decodeBody(t, resp, &denied)
	if denied.OK || denied.AccessToken != "" {
		t.Fatalf("unexpected denial shape: %+v", denied)
	}
}

func TestRegistrationValidatesBody(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Handler())
	defer srv.Close()

	// Empty body.
	resp, err := http.Post(srv.URL+"/registration", "application/json", strings.NewReader(""))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty body status = %d", resp.StatusCode)
	}

	// Missing password.
	resp, err = http.Post(srv.URL+"/registration", "application/json",
		strings.NewReader(`{"email":"x@example.com"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing password status = %d", resp.StatusCode)
	}
}

// brokenUserStore fails every lookup, standing in for an unreachable database.
type brokenUserStore struct {
	err error
}

func (s brokenUserStore) Create(context.Context, *auth.User) error { return s.err }
func (s brokenUserStore) Find(context.Context, int64) (*auth.User, error) {
	return nil, s.err
}
func (s brokenUserStore) FindByEmail(context.Context, string) (*auth.User, error) {
	return nil, s.err
}

// A cryptographically valid refresh token whose user lookup fails on the
// store side is an internal error, not a denial.
func TestRefreshStoreFailureIs500(t *testing.T) {
	tokens := auth.NewTokens([]byte("access-secret"), []byte("refresh-secret"),
		auth.WithIssuer("vidmark"))
	authSvc := auth.NewService(brokenUserStore{err: errors.New("db down")}, tokens)

	disk, err := media.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	api := New(ReadyProbe{}, authSvc, video.NewService(video.NewMemoryStore(), disk),
		stream.New(), Options{Version: "test"})

	pair, err := tokens.Issue(auth.Payload{UserID: 1, Email: "ops@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/refresh_token", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: pair.RefreshToken})
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("store failure status = %d, want 500", rec.Code)
	}
	var body refreshResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.OK || body.AccessToken != "" {
		t.Fatalf("unexpected 500 body shape: %+v", body)
	}
}

func TestRegistrationIgnoresUnknownFields(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/registration", "application/json",
		strings.NewReader(`{"email":"extra@example.com","password":"pw","rememberMe":true}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, extra fields must be ignored", resp.StatusCode)
	}
	var reg authResponse
	decodeBody(t, resp, &reg)
	if reg.UserInfo.Email != "extra@example.com" {
		t.Fatalf("unexpected user info: %+v", reg.UserInfo)
	}
}

func cookiePath(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Path
		}
	}
	return ""
}

func hasCookie(jar http.CookieJar, rawURL, name string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}
