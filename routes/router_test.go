package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Kariqs/sweet-shop/middlewares"
	"github.com/Kariqs/sweet-shop/routes/routestest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90wS\xde")

func do(t *testing.T, srv *routestest.Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middlewares.SessionCookie {
			return c
		}
	}
	return nil
}

func withAdmin(t *testing.T) (*routestest.Server, string) {
	t.Helper()
	srv := routestest.New(t)
	srv.CreateAdmin(t, "boss@example.com", "secret1", "Boss")
	return srv, srv.Login(t, "boss@example.com", "secret1")
}

func TestProductLifecycleOverHTTP(t *testing.T) {
	srv, admin := withAdmin(t)
	srv.CreateCustomer(t, "ann@example.com", "secret1", "Ann")
	customer := srv.Login(t, "ann@example.com", "secret1")

	rec := do(t, srv, http.MethodPost, "/api/admin/products", admin, map[string]any{
		"name": "Fudge", "description": "Rich", "price": 4.5, "category": "candy", "stock": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "4.50", created["price"])
	id := created["id"].(string)

	rec = do(t, srv, http.MethodGet, "/api/sweets", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.EqualValues(t, 10, list[0]["stock"])
	assert.Equal(t, "", list[0]["image_url"])

	for i := 0; i < 3; i++ {
		rec = do(t, srv, http.MethodPost, "/api/sweets/"+id+"/purchase", customer, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.EqualValues(t, 7, decode[map[string]any](t, rec)["stock"])

	rec = do(t, srv, http.MethodPut, "/api/admin/products/"+id, admin, map[string]any{
		"name": "Fudge", "description": "Rich", "price": "4.75", "category": "candy", "stock": "0", "image_url": "",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "4.75", decode[map[string]any](t, rec)["price"])

	rec = do(t, srv, http.MethodPost, "/api/sweets/"+id+"/purchase", customer, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, map[string]string{"error": "Out of stock", "code": "OUT_OF_STOCK"}, decode[map[string]string](t, rec))

	rec = do(t, srv, http.MethodDelete, "/api/admin/products/"+id, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/api/admin/products/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPurchaseRequiresSession(t *testing.T) {
	srv := routestest.New(t)
	rec := do(t, srv, http.MethodPost, "/api/sweets/abc/purchase", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH_ERROR", decode[map[string]string](t, rec)["code"])
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	srv := routestest.New(t)
	srv.CreateCustomer(t, "ann@example.com", "secret1", "Ann")
	customer := srv.Login(t, "ann@example.com", "secret1")

	rec := do(t, srv, http.MethodGet, "/api/admin/products", customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/admin/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateProductRejectsUnknownCategory(t *testing.T) {
	srv, admin := withAdmin(t)
	rec := do(t, srv, http.MethodPost, "/api/admin/products", admin, map[string]any{
		"name": "Scone", "description": "Dry", "price": "2", "category": "bread",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["error"], "Category must be one of")
}

func TestCreateProductWithMultipartImage(t *testing.T) {
	srv, admin := withAdmin(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{"name": "Truffle", "description": "Dark", "price": "3", "category": "chocolate", "stock": "4"} {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("image", "truffle.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/products", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, 1, srv.Images.Count())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "https://cdn.shop.test/product-images/"+srv.Images.Names[0], body["image_url"])
	assert.EqualValues(t, 4, body["stock"])
}

func TestAdminSetupOnlyOnce(t *testing.T) {
	srv := routestest.New(t)
	body := map[string]string{"email": "boss@example.com", "password": "secret1", "fullName": "Boss"}

	rec := do(t, srv, http.MethodPost, "/api/admin/setup", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/admin/setup", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterLoginSessionLogout(t *testing.T) {
	srv := routestest.New(t)

	rec := do(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "ann@example.com", "password": "secret1", "fullName": "Ann"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Email not confirmed", decode[map[string]string](t, rec)["error"])

	rec = do(t, srv, http.MethodPost, "/api/auth/verify-email", "", map[string]string{"token": srv.Mail.LastToken(t), "type": "email"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, "ann@example.com", session["user"]["email"])
	assert.Equal(t, "customer", session["profile"]["role"])

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sessionCookie(rec))
	assert.Less(t, sessionCookie(rec).MaxAge, 0)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"user":null,"profile":null}`, rec.Body.String())
}

func TestRecoveryCallbackAndUpdatePassword(t *testing.T) {
	srv := routestest.New(t)
	srv.CreateCustomer(t, "ann@example.com", "secret1", "Ann")

	rec := do(t, srv, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	unknown := rec.Body.String()
	rec = do(t, srv, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ann@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, unknown, rec.Body.String(), "responses do not reveal registered addresses")

	link, err := url.Parse(srv.Mail.LastLink(t))
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/callback", link.Path)

	rec = do(t, srv, http.MethodGet, "/api/auth/callback?token=bogus&type=recovery", "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, routestest.FrontendURL+"/reset-password?error=access_denied&error_description=Email+link+is+invalid+or+has+expired", rec.Header().Get("Location"))

	rec = do(t, srv, http.MethodGet, link.RequestURI(), "", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, routestest.FrontendURL+"/reset-password", rec.Header().Get("Location"))
	recovery := sessionCookie(rec)
	require.NotNil(t, recovery)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/update-password", strings.NewReader(`{"password":"123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(recovery)
	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/update-password", strings.NewReader(`{"password":"brand-new"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(recovery)
	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "brand-new"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthMetricsAndGoogleDisabled(t *testing.T) {
	srv := routestest.New(t)

	rec := do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/auth/google", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sweetshop_http_requests_total")
}

func TestCORSAllowsFrontendWithCredentials(t *testing.T) {
	srv := routestest.New(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/sweets", nil)
	req.Header.Set("Origin", routestest.FrontendURL)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)

	assert.Equal(t, routestest.FrontendURL, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
