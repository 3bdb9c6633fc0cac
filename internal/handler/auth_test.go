package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/glucolog/internal/auth"
	"github.com/sakif/glucolog/internal/model"
)

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// =============================================================================
// REGISTER / LOGIN
// =============================================================================

func TestAuth_RegisterSetsSessionCookies(t *testing.T) {
	api := newTestAPI(t)

	rr := doRequest(t, api, http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","password":"correct horse battery","name":"Alice"}`, nil)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var user model.User
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.Name)

	cookies := rr.Result().Cookies()
	access := findCookie(cookies, auth.AccessCookieName)
	refresh := findCookie(cookies, auth.RefreshCookieName)

	if assert.NotNil(t, access) {
		assert.NotEmpty(t, access.Value)
		assert.True(t, access.HttpOnly, "access cookie must be HttpOnly")
	}
	if assert.NotNil(t, refresh) {
		assert.NotEmpty(t, refresh.Value)
		assert.True(t, refresh.HttpOnly, "refresh cookie must be HttpOnly")
		assert.Equal(t, "/api/auth/refresh", refresh.Path)
	}
}

func TestAuth_RegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	t.Run("duplicate email", func(t *testing.T) {
		signUp(t, api, "alice@example.com")

		rr := doRequest(t, api, http.MethodPost, "/api/auth/register",
			`{"email":"alice@example.com","password":"another password","name":"Imposter"}`, nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("malformed email", func(t *testing.T) {
		rr := doRequest(t, api, http.MethodPost, "/api/auth/register",
			`{"email":"not-an-email","password":"correct horse battery","name":"X"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("short password", func(t *testing.T) {
		rr := doRequest(t, api, http.MethodPost, "/api/auth/register",
			`{"email":"bob@example.com","password":"short","name":"Bob"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuth_LoginRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	signUp(t, api, "alice@example.com")

	rr := doRequest(t, api, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"correct horse battery"}`, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, findCookie(rr.Result().Cookies(), auth.AccessCookieName))
}

// Wrong password and unknown email must be indistinguishable: same status,
// same body.
func TestAuth_LoginFailuresLookAlike(t *testing.T) {
	api := newTestAPI(t)
	signUp(t, api, "alice@example.com")

	wrongPassword := doRequest(t, api, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"wrong password here"}`, nil)
	unknownEmail := doRequest(t, api, http.MethodPost, "/api/auth/login",
		`{"email":"nobody@example.com","password":"correct horse battery"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

func TestAuth_RefreshIssuesNewSession(t *testing.T) {
	api := newTestAPI(t)
	session := signUp(t, api, "alice@example.com")

	refresh := findCookie(session, auth.RefreshCookieName)
	if refresh == nil {
		t.Fatal("register did not set a refresh cookie")
	}

	rr := doRequest(t, api, http.MethodPost, "/api/auth/refresh", "", []*http.Cookie{refresh})
	assert.Equal(t, http.StatusOK, rr.Code)

	fresh := findCookie(rr.Result().Cookies(), auth.AccessCookieName)
	if assert.NotNil(t, fresh) {
		assert.NotEmpty(t, fresh.Value)
	}

	// The new access token works against a protected route.
	rr = doRequest(t, api, http.MethodGet, "/api/auth/me", "", []*http.Cookie{fresh})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuth_RefreshRejectsAccessToken(t *testing.T) {
	api := newTestAPI(t)
	session := signUp(t, api, "alice@example.com")

	// Present the short-lived ACCESS token on the refresh endpoint. The token
	// kinds are separate — this must not mint a new session.
	access := findCookie(session, auth.AccessCookieName)
	forged := &http.Cookie{Name: auth.RefreshCookieName, Value: access.Value}

	rr := doRequest(t, api, http.MethodPost, "/api/auth/refresh", "", []*http.Cookie{forged})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_RefreshWithoutCookie(t *testing.T) {
	api := newTestAPI(t)

	rr := doRequest(t, api, http.MethodPost, "/api/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_LogoutClearsCookies(t *testing.T) {
	api := newTestAPI(t)
	session := signUp(t, api, "alice@example.com")

	rr := doRequest(t, api, http.MethodPost, "/api/auth/logout", "", session)
	assert.Equal(t, http.StatusOK, rr.Code)

	access := findCookie(rr.Result().Cookies(), auth.AccessCookieName)
	if assert.NotNil(t, access) {
		assert.Empty(t, access.Value)
		assert.Negative(t, access.MaxAge)
	}
}

// =============================================================================
// PROFILE
// =============================================================================

func TestAuth_MeReturnsProfileWithoutSecrets(t *testing.T) {
	api := newTestAPI(t)
	session := signUp(t, api, "alice@example.com")

	rr := doRequest(t, api, http.MethodGet, "/api/auth/me", "", session)
	assert.Equal(t, http.StatusOK, rr.Code)

	// The password hash must never appear on the wire, tags or not.
	assert.NotContains(t, rr.Body.String(), "password")
	assert.NotContains(t, rr.Body.String(), "$2a$")

	var user model.User
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, model.LanguageEN, user.Language)
}

func TestAuth_UpdateProfile(t *testing.T) {
	api := newTestAPI(t)
	session := signUp(t, api, "alice@example.com")

	rr := doRequest(t, api, http.MethodPut, "/api/auth/me",
		`{"name":"Alice Chen","language":"zh"}`, session)
	assert.Equal(t, http.StatusOK, rr.Code)

	var user model.User
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
	assert.Equal(t, "Alice Chen", user.Name)
	assert.Equal(t, model.LanguageZH, user.Language)

	t.Run("unsupported language", func(t *testing.T) {
		rr := doRequest(t, api, http.MethodPut, "/api/auth/me",
			`{"language":"fr"}`, session)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
