package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/where/internal/domain"
	"github.com/totegamma/where/internal/interface/rest/middleware"
	"github.com/totegamma/where/internal/service"
	"github.com/totegamma/where/internal/usecase"
)

// --- mocks ---

type mockLocationRepo struct{}

func (m *mockLocationRepo) List(ctx context.Context) ([]domain.Location, error) { return nil, nil }
func (m *mockLocationRepo) Save(ctx context.Context, l domain.Location) error   { return nil }
func (m *mockLocationRepo) AddComment(ctx context.Context, id string, c domain.Comment) error {
	return nil
}

type mockBlobStore struct {
	fail  bool
	count int
}

func (m *mockBlobStore) Upload(ctx context.Context, filename string, body []byte) (domain.Blob, error) {
	if m.fail {
		return domain.Blob{}, domain.UploadError{Status: http.StatusInternalServerError, Reason: "gateway down"}
	}
	m.count++
	cid := fmt.Sprintf("cid-%d", m.count)
	return domain.Blob{CID: cid, GatewayURL: m.GatewayURL(cid)}, nil
}
func (m *mockBlobStore) GatewayURL(cid string) string { return "https://gw.test/s5/gateway/" + cid }

type likeKey struct{ user, image string }

type mockLedgerRepo struct {
	likes  map[likeKey]string
	points map[string]float64
}

func (m *mockLedgerRepo) Like(ctx context.Context, like domain.ImageLike, beneficiary string, points float64) (bool, error) {
	k := likeKey{like.UserID, like.ImageURL}
	if _, ok := m.likes[k]; ok {
		return false, nil
	}
	m.likes[k] = beneficiary
	m.points[beneficiary] += points
	return true, nil
}
func (m *mockLedgerRepo) Unlike(ctx context.Context, userID, imageURL string, points float64) (bool, error) {
	k := likeKey{userID, imageURL}
	b, ok := m.likes[k]
	if !ok {
		return false, nil
	}
	delete(m.likes, k)
	m.points[b] -= points
	return true, nil
}
func (m *mockLedgerRepo) IsLiked(ctx context.Context, userID, imageURL string) (bool, error) {
	_, ok := m.likes[likeKey{userID, imageURL}]
	return ok, nil
}
func (m *mockLedgerRepo) CountLikes(ctx context.Context, imageURL string) (int64, error) {
	var n int64
	for k := range m.likes {
		if k.image == imageURL {
			n++
		}
	}
	return n, nil
}
func (m *mockLedgerRepo) CountReferrals(ctx context.Context, referrerID string) (int64, error) {
	return 0, nil
}
func (m *mockLedgerRepo) Points(ctx context.Context, userID string) (float64, error) {
	return m.points[userID], nil
}

type mockUserRepo struct {
	users map[string]domain.User
	creds map[string]domain.Credentials
}

func (m *mockUserRepo) Create(ctx context.Context, user domain.User, creds *domain.Credentials, referrerID *string) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return domain.ErrConflict
		}
	}
	m.users[user.ID] = user
	if creds != nil {
		m.creds[user.ID] = *creds
	}
	return nil
}
func (m *mockUserRepo) Get(ctx context.Context, id string) (domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.NotFoundError{Resource: "user", ID: id}
	}
	return u, nil
}
func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, domain.Credentials, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, m.creds[u.ID], nil
		}
	}
	return domain.User{}, domain.Credentials{}, domain.NotFoundError{Resource: "user"}
}
func (m *mockUserRepo) GetByReferralCode(ctx context.Context, code string) (domain.User, error) {
	return domain.User{}, domain.NotFoundError{Resource: "user"}
}

// --- helpers ---

type testServer struct {
	e      *echo.Echo
	blobs  *mockBlobStore
	store  *usecase.LocationStore
	ledger *mockLedgerRepo
	auth   *service.AuthService
}

func newTestServer() *testServer {
	blobs := &mockBlobStore{}
	store := usecase.NewLocationStore(&mockLocationRepo{}, blobs, nil, nil)
	ledgerRepo := &mockLedgerRepo{likes: map[likeKey]string{}, points: map[string]float64{}}
	ledger := usecase.NewLedger(ledgerRepo, store, nil, nil)
	auth := service.NewAuthService(domain.AuthConfig{Issuer: "where-test", Secret: "test-secret", TokenTTL: time.Hour})
	accounts := usecase.NewAccountUsecase(&mockUserRepo{
		users: map[string]domain.User{},
		creds: map[string]domain.Credentials{},
	}, auth, nil)

	e := echo.New()
	e.Use(middleware.NewAuthMiddleware(auth).IdentifyIdentity)
	NewHandler(store, ledger, accounts, nil, nil).RegisterRoutes(e)

	return &testServer{e: e, blobs: blobs, store: store, ledger: ledgerRepo, auth: auth}
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	s.e.ServeHTTP(res, req)
	return res
}

const draftBody = `{"name":"Plaza","description":"old town","latitude":40.4,"longitude":-3.7,"images":["https://img/a.jpg"],"createdBy":"u1"}`

func (s *testServer) createLocation(t *testing.T) usecase.LocationResult {
	t.Helper()
	res := s.do(http.MethodPost, "/api/v1/locations", draftBody, "")
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var result usecase.LocationResult
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &result))
	return result
}

// --- tests ---

func TestCreateAndGetLocation(t *testing.T) {
	s := newTestServer()
	created := s.createLocation(t)

	assert.Equal(t, "cid-1", created.CID)
	assert.Equal(t, "https://gw.test/s5/gateway/cid-1", created.GatewayURL)
	assert.Equal(t, 0, created.Location.RatingCount)
	assert.Equal(t, created.Location.Images, created.Location.AllImages)

	res := s.do(http.MethodGet, "/api/v1/locations/"+created.Location.ID, "", "")
	require.Equal(t, http.StatusOK, res.Code)

	var view map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &view))
	assert.Equal(t, "Plaza", view["name"])
	assert.Equal(t, "cid-1", view["cid"])
	assert.Equal(t, 2.9, view["score"])

	res = s.do(http.MethodGet, "/api/v1/locations?createdBy=u1", "", "")
	require.Equal(t, http.StatusOK, res.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	res = s.do(http.MethodGet, "/api/v1/locations?createdBy=someone-else", "", "")
	assert.JSONEq(t, `[]`, res.Body.String())
}

func TestCreateLocationUploadFailure(t *testing.T) {
	s := newTestServer()
	s.blobs.fail = true

	res := s.do(http.MethodPost, "/api/v1/locations", draftBody, "")
	assert.Equal(t, http.StatusBadGateway, res.Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestCreateLocationUsesRequester(t *testing.T) {
	s := newTestServer()
	token, err := s.auth.IssueToken(domain.User{ID: "token-user", Username: "alice"})
	require.NoError(t, err)

	res := s.do(http.MethodPost, "/api/v1/locations", draftBody, token)
	require.Equal(t, http.StatusCreated, res.Code)

	var result usecase.LocationResult
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &result))
	assert.Equal(t, "token-user", result.Location.CreatedBy)
	require.NotNil(t, result.Location.Contributors[0].Username)
	assert.Equal(t, "alice", *result.Location.Contributors[0].Username)
}

func TestAddCommentUnknownLocation(t *testing.T) {
	s := newTestServer()

	res := s.do(http.MethodPost, "/api/v1/locations/loc_404/comments", `{"userId":"u1","text":"hi"}`, "")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, 0, s.blobs.count)
}

func TestSubmitRating(t *testing.T) {
	s := newTestServer()
	created := s.createLocation(t)
	path := "/api/v1/locations/" + created.Location.ID + "/ratings"

	res := s.do(http.MethodPost, path, `{"userId":"u2","security":11,"violence":0,"welcoming":0,"streetFood":0,"restaurants":0,"pickpocketing":0,"qualityOfLife":0}`, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = s.do(http.MethodPost, path, `{"userId":"u2","security":10,"violence":0,"welcoming":10,"streetFood":10,"restaurants":10,"pickpocketing":0,"qualityOfLife":10}`, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	var result usecase.LocationResult
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Location.RatingCount)
	assert.Equal(t, 10.0, result.Location.Ratings.Score())
}

func TestLikes(t *testing.T) {
	s := newTestServer()
	created := s.createLocation(t)
	body := fmt.Sprintf(`{"userId":"u2","locationId":%q,"imageUrl":"https://img/a.jpg"}`, created.Location.ID)

	for i := 0; i < 2; i++ {
		res := s.do(http.MethodPost, "/api/v1/likes", body, "")
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	}

	res := s.do(http.MethodGet, "/api/v1/likes?imageUrl=https://img/a.jpg&userId=u2", "", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"imageUrl":"https://img/a.jpg","count":1,"liked":true}`, res.Body.String())
	assert.InDelta(t, domain.LikePoints, s.ledger.points["u1"], 1e-9)

	res = s.do(http.MethodDelete, "/api/v1/likes", `{"userId":"u3","locationId":"x","imageUrl":"https://img/a.jpg"}`, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"imageUrl":"https://img/a.jpg","count":1,"liked":false}`, res.Body.String())

	res = s.do(http.MethodGet, "/api/v1/likes", "", "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSignupAndMe(t *testing.T) {
	s := newTestServer()

	res := s.do(http.MethodGet, "/api/v1/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = s.do(http.MethodPost, "/api/v1/auth/signup", `{"username":"alice","password":"hunter22"}`, "")
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var session usecase.Session
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)

	res = s.do(http.MethodGet, "/api/v1/auth/me", "", session.Token)
	require.Equal(t, http.StatusOK, res.Code)
	var me domain.User
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Username)

	res = s.do(http.MethodPost, "/api/v1/auth/signup", `{"username":"alice","password":"hunter22"}`, "")
	assert.Equal(t, http.StatusConflict, res.Code)

	res = s.do(http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestWellKnown(t *testing.T) {
	s := newTestServer()
	res := s.do(http.MethodGet, "/.well-known/where", "", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "/api/v1/locations/{id}")
}
