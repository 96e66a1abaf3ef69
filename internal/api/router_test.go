package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/app"
	iauth "github.com/pennlabs/clubs/internal/auth"
	"github.com/pennlabs/clubs/internal/database/testutil"
	"github.com/pennlabs/clubs/internal/models"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	jwt    *iauth.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "clubs"})
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Server.FrontendURL = "https://clubs.example.com"
	cfg.Assets.Dir = t.TempDir()

	router, err := NewRouter(db, jwt, cfg, nil)
	require.NoError(t, err)

	return &testEnv{db: db, router: router, jwt: jwt}
}

func (e *testEnv) createUser(t *testing.T, username, password string, superuser bool) *models.User {
	t.Helper()
	hash, err := iauth.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    hash,
		IsActive:    true,
		IsSuperuser: superuser,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(userID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	return envelope.Data
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	var envelope struct {
		Success bool          `json:"success"`
		Data    []interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	return envelope.Data
}

func TestRouterHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouterLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "benfranklin", "printing-press", false)

	// Wrong password
	w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "benfranklin",
		"password": "kite-and-key",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Missing fields fail validation
	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "benfranklin"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Correct credentials issue a token
	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "benfranklin",
		"password": "printing-press",
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	// The token works against /auth/me
	w = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decodeData(t, w)
	require.Equal(t, "benfranklin", me["username"])

	// Anonymous access to /auth/me is rejected
	w = env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterClubLifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "pw", false)
	reviewer := env.createUser(t, "reviewer", "pw", true)
	ownerToken := env.token(t, owner.ID)
	reviewerToken := env.token(t, reviewer.ID)

	// Creating a club requires authentication.
	w := env.do(t, http.MethodPost, "/api/clubs", "", gin.H{"name": "Chess Club"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/clubs", ownerToken, gin.H{"name": "Chess Club"})
	require.Equal(t, http.StatusCreated, w.Code)
	club := decodeData(t, w)
	require.Equal(t, "chess-club", club["code"])

	// Unapproved clubs are invisible to anonymous viewers.
	w = env.do(t, http.MethodGet, "/api/clubs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decodeList(t, w))

	w = env.do(t, http.MethodGet, "/api/clubs/chess-club", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// The owner sees their pending club.
	w = env.do(t, http.MethodGet, "/api/clubs/chess-club", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Approval decisions cannot be mixed with ordinary edits.
	w = env.do(t, http.MethodPatch, "/api/clubs/chess-club", reviewerToken, gin.H{
		"approved": true,
		"subtitle": "The oldest club on campus",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Non-reviewers cannot approve.
	w = env.do(t, http.MethodPatch, "/api/clubs/chess-club", ownerToken, gin.H{"approved": true})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, "/api/clubs/chess-club", reviewerToken, gin.H{
		"approved":         true,
		"approved_comment": "Welcome back",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Now the club is publicly listed.
	w = env.do(t, http.MethodGet, "/api/clubs", "", nil)
	require.Len(t, decodeList(t, w), 1)

	// Officers can edit; outsiders cannot.
	w = env.do(t, http.MethodPatch, "/api/clubs/chess-club", ownerToken, gin.H{
		"subtitle": "Strategy and snacks",
	})
	require.Equal(t, http.StatusOK, w.Code)

	stranger := env.createUser(t, "stranger", "pw", false)
	w = env.do(t, http.MethodPatch, "/api/clubs/chess-club", env.token(t, stranger.ID), gin.H{
		"subtitle": "Hijacked",
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	// The fair toggle is its own PATCH shape.
	w = env.do(t, http.MethodPatch, "/api/clubs/chess-club", ownerToken, gin.H{
		"fair":     true,
		"subtitle": "also this",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, "/api/clubs/chess-club", ownerToken, gin.H{"fair": true})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeData(t, w)
	require.Equal(t, true, updated["fair"])
}

func TestRouterSensitiveEditServesSnapshot(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "pw", false)
	reviewer := env.createUser(t, "reviewer", "pw", true)
	ownerToken := env.token(t, owner.ID)

	w := env.do(t, http.MethodPost, "/api/clubs", ownerToken, gin.H{"name": "Glee Club"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPatch, "/api/clubs/glee-club", env.token(t, reviewer.ID), gin.H{"approved": true})
	require.Equal(t, http.StatusOK, w.Code)

	// Renaming queues the club for re-review.
	w = env.do(t, http.MethodPatch, "/api/clubs/glee-club", ownerToken, gin.H{
		"name": "Glee and A Cappella Club",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Anonymous readers still see the approved name.
	w = env.do(t, http.MethodGet, "/api/clubs/glee-club", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	public := decodeData(t, w)
	require.Equal(t, "Glee Club", public["name"])

	// The owner sees the pending rename.
	w = env.do(t, http.MethodGet, "/api/clubs/glee-club", ownerToken, nil)
	live := decodeData(t, w)
	require.Equal(t, "Glee and A Cappella Club", live["name"])
}

func TestRouterMembershipAndEngagement(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "pw", false)
	fan := env.createUser(t, "fan", "pw", false)
	ownerToken := env.token(t, owner.ID)
	fanToken := env.token(t, fan.ID)

	w := env.do(t, http.MethodPost, "/api/clubs", ownerToken, gin.H{"name": "Running Club"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Bookmarking is idempotent only in the negative sense: repeats conflict.
	w = env.do(t, http.MethodPost, "/api/clubs/running-club/favorite", fanToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPost, "/api/clubs/running-club/favorite", fanToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, "/api/favorites", fanToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeList(t, w), 1)

	// Membership requests flow into the roster.
	w = env.do(t, http.MethodPost, "/api/clubs/running-club/requests", fanToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/clubs/running-club/requests/fan/accept", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/clubs/running-club/members", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeList(t, w), 2)

	// Request lists are officer-only.
	w = env.do(t, http.MethodGet, "/api/clubs/running-club/requests", fanToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouterQuestionPermissions(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "pw", false)
	asker := env.createUser(t, "asker", "pw", false)
	ownerToken := env.token(t, owner.ID)
	askerToken := env.token(t, asker.ID)

	w := env.do(t, http.MethodPost, "/api/clubs", ownerToken, gin.H{"name": "Debate Society"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/clubs/debate-society/questions", askerToken, gin.H{
		"question": "How do I join?",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	question := decodeData(t, w)
	questionID, _ := question["id"].(string)
	require.NotEmpty(t, questionID)

	path := fmt.Sprintf("/api/clubs/debate-society/questions/%s", questionID)

	// The question text belongs to its author; even the club owner cannot
	// rewrite it.
	w = env.do(t, http.MethodPatch, path, ownerToken, gin.H{"question": "How do I leave?"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, path, askerToken, gin.H{"question": "How can I join?"})
	require.Equal(t, http.StatusOK, w.Code)

	// Only officers may answer.
	w = env.do(t, http.MethodPatch, path, askerToken, gin.H{"answer": "You don't"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, path, ownerToken, gin.H{"answer": "Come to a meeting!"})
	require.Equal(t, http.StatusOK, w.Code)

	// Unapproved questions are hidden from anonymous listings; answered
	// questions are published.
	w = env.do(t, http.MethodGet, "/api/clubs/debate-society/questions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeList(t, w), 1)
}

func TestRouterVocabularyEndpoints(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", "pw", true)
	regular := env.createUser(t, "regular", "pw", false)

	w := env.do(t, http.MethodGet, "/api/years", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, decodeList(t, w))

	// Creating vocabulary entries is superuser-only.
	w = env.do(t, http.MethodPost, "/api/majors", env.token(t, regular.ID), gin.H{"name": "Basket Weaving"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/majors", env.token(t, admin.ID), gin.H{"name": "Basket Weaving"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/majors", "", nil)
	require.Len(t, decodeList(t, w), 1)
}

func TestRouterDeactivationRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "pw", false)
	officer := env.createUser(t, "officer", "pw", false)
	ownerToken := env.token(t, owner.ID)
	officerToken := env.token(t, officer.ID)

	w := env.do(t, http.MethodPost, "/api/clubs", ownerToken, gin.H{"name": "Ski Team"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/clubs/ski-team/requests", officerToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPost, "/api/clubs/ski-team/requests/officer/accept", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPatch, "/api/clubs/ski-team/members/officer", ownerToken, gin.H{"role": models.RoleOfficer})
	require.Equal(t, http.StatusOK, w.Code)

	// Officers edit freely but cannot deactivate the club.
	w = env.do(t, http.MethodPatch, "/api/clubs/ski-team", officerToken, gin.H{"subtitle": "Fresh powder"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPatch, "/api/clubs/ski-team", officerToken, gin.H{"active": false})
	require.Equal(t, http.StatusForbidden, w.Code)

	// Nor demote someone who outranks them.
	w = env.do(t, http.MethodPatch, "/api/clubs/ski-team/members/owner", officerToken, gin.H{"role": models.RoleMember})
	require.Equal(t, http.StatusForbidden, w.Code)

	// The owner can take the club offline.
	w = env.do(t, http.MethodPatch, "/api/clubs/ski-team", ownerToken, gin.H{"active": false})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, decodeData(t, w)["active"])

	w = env.do(t, http.MethodGet, "/api/clubs/ski-team", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, decodeData(t, w)["active"])
}

func TestRouterUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/nonsense", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
