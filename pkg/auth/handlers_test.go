package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantgate/tenantgate/pkg/tenant"
)

func newAuthTestRouter(t *testing.T) (*mux.Router, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	router := mux.NewRouter()
	router.Use(tenant.Middleware(tenant.NewResolver("localhost")))
	NewHandlers(newTestService(store)).RegisterRoutes(router)
	return router, store
}

func postJSON(router *mux.Router, host, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "http://"+host+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpoint(t *testing.T) {
	router, store := newAuthTestRouter(t)
	acme := store.addTenant("acme")
	seedUser(t, store, "ada@acme.com", "pw", RoleEndUser, acme.ID)

	t.Run("success returns token and redirect", func(t *testing.T) {
		rec := postJSON(router, "acme.localhost", "/api/auth/login",
			`{"email":"ada@acme.com","password":"pw"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var result LoginResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, "/end-user-dashboard.html", result.RedirectURL)
		assert.Equal(t, acme.ID, result.TenantID)
	})

	t.Run("wrong password is 401", func(t *testing.T) {
		rec := postJSON(router, "acme.localhost", "/api/auth/login",
			`{"email":"ada@acme.com","password":"nope"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong subdomain is 401", func(t *testing.T) {
		rec := postJSON(router, "globex.localhost", "/api/auth/login",
			`{"email":"ada@acme.com","password":"pw"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields is 400", func(t *testing.T) {
		rec := postJSON(router, "acme.localhost", "/api/auth/login", `{"email":"ada@acme.com"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		rec := postJSON(router, "acme.localhost", "/api/auth/login", `{broken`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginCookieEndpoint(t *testing.T) {
	router, store := newAuthTestRouter(t)
	acme := store.addTenant("acme")
	seedUser(t, store, "ada@acme.com", "pw", RoleEndUser, acme.ID)

	rec := postJSON(router, "acme.localhost", "/api/auth/login-cookie",
		`{"email":"ada@acme.com","password":"pw"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AuthCookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestRegisterEndpoint(t *testing.T) {
	router, store := newAuthTestRouter(t)
	store.addTenant("acme")

	t.Run("creates end user", func(t *testing.T) {
		rec := postJSON(router, "acme.localhost", "/api/auth/register",
			`{"email":"new@acme.com","password":"pw","firstName":"New","lastName":"User"}`)

		require.Equal(t, http.StatusCreated, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body, "userId")
	})

	t.Run("duplicate email is 409", func(t *testing.T) {
		rec := postJSON(router, "acme.localhost", "/api/auth/register",
			`{"email":"new@acme.com","password":"pw"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("rejected on base domain", func(t *testing.T) {
		rec := postJSON(router, "localhost", "/api/auth/register",
			`{"email":"other@acme.com","password":"pw"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown tenant is 404", func(t *testing.T) {
		rec := postJSON(router, "ghost.localhost", "/api/auth/register",
			`{"email":"ghost@ghost.com","password":"pw"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
