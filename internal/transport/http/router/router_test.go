package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carbuy-api/internal/core/auth"
	"carbuy-api/internal/core/config"
	"carbuy-api/internal/service"
	"carbuy-api/internal/testutil"
	mdw "carbuy-api/internal/transport/http/middleware"
)

type apiEnv struct {
	t  *testing.T
	db *gorm.DB
	r  *gin.Engine
}

func newAPI(t *testing.T, enforce bool) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	cfg := config.Default()
	cfg.Listing.EnforceOwnership = enforce
	svcs := service.New(db, service.ListingOptions{EnforceOwnership: enforce}, zap.NewNop())
	return &apiEnv{t: t, db: db, r: NewAPIEngine(zap.NewNop(), svcs, &cfg)}
}

func (e *apiEnv) call(method, path, token, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(mdw.HeaderSessionToken, token)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// register + login，返回令牌
func (e *apiEnv) signUp(email, password string) string {
	e.t.Helper()
	w := e.call(http.MethodPost, "/users", "", fmt.Sprintf(
		`{"name":"Ana","mail":%q,"password":%q,"birthdate":"1990-04-01","phone":"600111222"}`, email, password))
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(e.t, `{"registered":true}`, w.Body.String())

	w = e.call(http.MethodPost, "/sessions", "", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return decode[map[string]string](e.t, w)["sessionToken"]
}

func TestScenario_FavouriteFollowsListingDelete(t *testing.T) {
	e := newAPI(t, true)
	tok := e.signUp("a@x.com", "pw-a")
	require.Len(t, tok, 40)

	w := e.call(http.MethodPost, "/ad_management", tok,
		`{"brand":"Volkswagen","model":"Golf","year":2019,"price":"15000.00","description":"one owner"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		Message string `json:"message"`
		ID      uint   `json:"id"`
	}](t, w)
	assert.Equal(t, "Ad created successfully", created.Message)
	id := created.ID

	w = e.call(http.MethodPut, "/favourite_management", tok, fmt.Sprintf(`{"car_id":%d}`, id))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Car added to favourites"}`, w.Body.String())

	w = e.call(http.MethodPut, "/favourite_management", tok, fmt.Sprintf(`{"car_id":%d}`, id))
	assert.JSONEq(t, `{"success":false,"message":"Car already in favourites"}`, w.Body.String())

	w = e.call(http.MethodGet, "/get_favourites", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	favs := decode[[]map[string]any](t, w)
	require.Len(t, favs, 1)
	assert.EqualValues(t, id, favs[0]["car_id"])
	assert.Equal(t, "Ana", favs[0]["user_name"])
	assert.Equal(t, "15000", favs[0]["price"])

	w = e.call(http.MethodDelete, "/ad_management", tok, fmt.Sprintf(`{"car_id":%d}`, id))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.call(http.MethodGet, "/get_favourites", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAccountEndpoints(t *testing.T) {
	e := newAPI(t, true)
	tok := e.signUp("b@x.com", "old-pw")

	// 重复注册
	w := e.call(http.MethodPost, "/users", "", `{"name":"B","mail":"b@x.com","password":"x","birthdate":"1990-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"email already exists"}`, w.Body.String())

	w = e.call(http.MethodPost, "/users", "", `{"name":"B","mail":"bad","password":"x","birthdate":"1990-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(http.MethodPost, "/users", "", `{"name":"B"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(http.MethodPost, "/sessions", "", `{"email":"nobody@x.com","password":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.call(http.MethodPost, "/sessions", "", `{"email":"b@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.call(http.MethodPost, "/sessions", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(http.MethodGet, "/account", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"b@x.com"}`, w.Body.String())
	assert.Equal(t, http.StatusUnauthorized, e.call(http.MethodGet, "/account", "", "").Code)

	w = e.call(http.MethodGet, "/get_user", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	u := decode[map[string]any](t, w)
	assert.Equal(t, tok, u["token"])
	assert.Equal(t, "b@x.com", u["email"])
	assert.Equal(t, http.StatusNotFound, e.call(http.MethodGet, "/get_user", "deadbeef", "").Code)
	assert.Equal(t, http.StatusUnauthorized, e.call(http.MethodGet, "/get_user", "", "").Code)

	// 改密失败不影响旧密码
	w = e.call(http.MethodPost, "/password", tok, `{"current_password":"nope","new_password":"n"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.call(http.MethodPost, "/password", tok, `{"current_password":"old-pw"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.call(http.MethodPost, "/password", tok, `{"current_password":"old-pw","new_password":"new-pw"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.call(http.MethodPost, "/sessions", "", `{"email":"b@x.com","password":"new-pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	tok2 := decode[map[string]string](t, w)["sessionToken"]
	assert.NotEqual(t, tok, tok2)

	// 单会话：旧令牌失效
	assert.Equal(t, http.StatusUnauthorized, e.call(http.MethodGet, "/account", tok, "").Code)

	w = e.call(http.MethodDelete, "/sessions", tok2, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Session closed successfully"}`, w.Body.String())
	assert.Equal(t, http.StatusUnauthorized, e.call(http.MethodDelete, "/sessions", tok2, "").Code)
	assert.Equal(t, http.StatusUnauthorized, e.call(http.MethodDelete, "/sessions", "", "").Code)
}

func TestAccountEndpoints_PasswordOver72Bytes(t *testing.T) {
	e := newAPI(t, true)
	long := strings.Repeat("x", 73)

	w := e.call(http.MethodPost, "/users", "", fmt.Sprintf(
		`{"name":"C","mail":"c@x.com","password":%q,"birthdate":"1990-01-01"}`, long))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"password: invalid field value"}`, w.Body.String())

	// 72 字节仍可注册
	tok := e.signUp("c@x.com", strings.Repeat("x", 72))

	w = e.call(http.MethodPost, "/password", tok, fmt.Sprintf(
		`{"current_password":%q,"new_password":%q}`, strings.Repeat("x", 72), long))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"password: invalid field value"}`, w.Body.String())
}

func TestListingEndpoints(t *testing.T) {
	e := newAPI(t, true)
	owner := e.signUp("owner@x.com", "pw")
	other := e.signUp("other@x.com", "pw")

	w := e.call(http.MethodPost, "/ad_management", owner,
		`{"brand":"Volkswagen","model":"Polo","year":2015,"price":"7999.99","description":"city car"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[map[string]any](t, w)["id"]

	w = e.call(http.MethodPost, "/ad_management", owner, `{"brand":"Seat","model":"Ibiza"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.call(http.MethodPost, "/ad_management", "",
		`{"brand":"Seat","model":"Ibiza","year":2015,"price":"1","description":"d"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 搜索
	w = e.call(http.MethodGet, "/search?brand_name=vw", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	cars := decode[struct {
		Cars []map[string]any `json:"cars"`
	}](t, w).Cars
	require.Len(t, cars, 1)
	assert.Equal(t, "Polo", cars[0]["model"])

	w = e.call(http.MethodGet, "/search?q=POLO", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]any](t, w)["cars"], 1)

	w = e.call(http.MethodGet, "/search?brand_name=tesla", "", "")
	assert.JSONEq(t, `{"cars":[]}`, w.Body.String())
	assert.Equal(t, http.StatusBadRequest, e.call(http.MethodGet, "/search", "", "").Code)

	// 详情
	w = e.call(http.MethodGet, fmt.Sprintf("/ad/%v", id), "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ad := decode[map[string]any](t, w)
	assert.Equal(t, "7999.99", ad["price"])
	assert.Equal(t, "https://shorturl.at/YJLnZ", ad["image_url"])
	assert.Equal(t, map[string]any{"name": "Ana", "phone": "600111222"}, ad["user"])
	assert.Equal(t, http.StatusNotFound, e.call(http.MethodGet, "/ad/999", "", "").Code)
	assert.Equal(t, http.StatusNotFound, e.call(http.MethodGet, "/ad/abc", "", "").Code)

	// 归属
	w = e.call(http.MethodPut, "/ad_management", other, fmt.Sprintf(`{"car_id":%v,"price":"1"}`, id))
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.call(http.MethodDelete, fmt.Sprintf("/ad_management?car_id=%v", id), other, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.call(http.MethodPut, "/ad_management", owner, fmt.Sprintf(`{"car_id":%v,"price":"7500","year":2016}`, id))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	upd := decode[map[string]any](t, w)["ad"].(map[string]any)
	assert.Equal(t, "7500", upd["price"])
	assert.EqualValues(t, 2016, upd["year"])
	assert.Equal(t, "Polo", upd["model"])

	w = e.call(http.MethodPut, "/ad_management", owner, `{"car_id":999,"price":"1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.call(http.MethodGet, "/get_ads", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]any](t, w), 1)

	w = e.call(http.MethodDelete, fmt.Sprintf("/ad_management?car_id=%v", id), owner, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Ad deleted successfully"}`, w.Body.String())
	assert.Equal(t, http.StatusNotFound, e.call(http.MethodDelete, fmt.Sprintf("/ad_management?car_id=%v", id), owner, "").Code)
}

func TestListingEndpoints_LegacyOwnership(t *testing.T) {
	e := newAPI(t, false)
	u := testutil.SeedUser(t, e.db, "legacy@x.com", "pw")

	w := e.call(http.MethodPost, "/ad_management", "", fmt.Sprintf(
		`{"brand":"Fiat","model":"Punto","year":2010,"price":"2500","description":"ok","user_id":%d}`, u.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.call(http.MethodPost, "/ad_management", "",
		`{"brand":"Fiat","model":"Punto","year":2010,"price":"2500","description":"ok","user_id":4242}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFavouriteEndpoints(t *testing.T) {
	e := newAPI(t, true)
	tok := e.signUp("fav@x.com", "pw")
	owner := testutil.SeedUser(t, e.db, "seller@x.com", "pw")
	l := testutil.SeedListing(t, e.db, owner.ID, "Audi", "A3")

	assert.Equal(t, http.StatusUnauthorized, e.call(http.MethodPut, "/favourite_management", "", `{"car_id":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, e.call(http.MethodPut, "/favourite_management", tok, `{}`).Code)
	assert.Equal(t, http.StatusNotFound, e.call(http.MethodPut, "/favourite_management", tok, `{"car_id":999}`).Code)

	w := e.call(http.MethodPut, "/favourite_management", tok, fmt.Sprintf(`{"car_id":%d}`, l.ID))
	require.Equal(t, http.StatusOK, w.Code)

	w = e.call(http.MethodDelete, fmt.Sprintf("/favourite_management?car_id=%d", l.ID), tok, "")
	assert.JSONEq(t, `{"success":true,"message":"Car removed from favourites"}`, w.Body.String())
	w = e.call(http.MethodDelete, "/favourite_management", tok, fmt.Sprintf(`{"car_id":%d}`, l.ID))
	assert.JSONEq(t, `{"success":false,"message":"Car was not in favourites"}`, w.Body.String())
}

func TestMethodNotAllowedAndHealth(t *testing.T) {
	e := newAPI(t, true)

	w := e.call(http.MethodGet, "/users", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"method not allowed"}`, w.Body.String())

	w = e.call(http.MethodPatch, "/sessions", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = e.call(http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.call(http.MethodGet, "/health", "", "")
	assert.JSONEq(t, `{"ok":1}`, w.Body.String())

	w = e.call(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestAdminEngine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	cfg := config.Default()
	svcs := service.New(db, service.ListingOptions{EnforceOwnership: true}, zap.NewNop())
	jwter, err := auth.NewJWTer("test-secret", cfg.JWT.Issuer, time.Minute)
	require.NoError(t, err)
	r := NewAdminEngine(zap.NewNop(), svcs, jwter, &cfg)

	u := testutil.SeedUser(t, db, "mod@x.com", "pw")
	l := testutil.SeedListing(t, db, u.ID, "Opel", "Corsa")
	tok, err := svcs.Sessions.Login(t.Context(), "mod@x.com", "pw")
	require.NoError(t, err)

	adminTok, err := jwter.Issue("ops", auth.RoleAdmin)
	require.NoError(t, err)
	userTok, err := jwter.Issue("someone", "user")
	require.NoError(t, err)

	call := func(method, path, bearer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/admin/v1/users", "").Code)
	assert.Equal(t, http.StatusForbidden, call(http.MethodGet, "/admin/v1/users", userTok).Code)

	w := call(http.MethodGet, "/admin/v1/users?q=mod", adminTok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), tok)
	assert.NotContains(t, w.Body.String(), "encrypted_password")
	var users struct {
		Code int `json:"code"`
		Data struct {
			Total int64            `json:"total"`
			Items []map[string]any `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.EqualValues(t, 1, users.Data.Total)
	assert.Equal(t, true, users.Data.Items[0]["loggedIn"])

	w = call(http.MethodPost, fmt.Sprintf("/admin/v1/users/%d/logout", u.ID), adminTok)
	require.Equal(t, http.StatusOK, w.Code)
	_, err = svcs.Sessions.Authenticate(t.Context(), tok)
	assert.Error(t, err)

	w = call(http.MethodGet, "/admin/v1/ads", adminTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Corsa")

	w = call(http.MethodDelete, fmt.Sprintf("/admin/v1/ads/%d", l.ID), adminTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, call(http.MethodDelete, fmt.Sprintf("/admin/v1/ads/%d", l.ID), adminTok).Code)
	assert.Equal(t, http.StatusBadRequest, call(http.MethodDelete, "/admin/v1/ads/x", adminTok).Code)
}
