package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/urna-api/internal/auth"
	"github.com/gravadigital/urna-api/internal/domain/session"
	"github.com/gravadigital/urna-api/internal/middleware/events"
)

const secret = "test-secret-with-enough-length-1234"

func newRouter(t *testing.T) (*gin.Engine, *auth.Verifier, *session.Session) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashServiceKey("llave-de-servicio")
	require.NoError(t, err)

	verifier := auth.NewVerifier(secret, "", "")
	seen := &session.Session{}

	r := gin.New()
	r.Use(events.CreateEvent(), Authenticate(verifier, auth.NewServiceKeyChecker(hash)))
	r.GET("/open", func(c *gin.Context) {
		*seen = FromContext(c)
		c.Status(http.StatusNoContent)
	})
	r.GET("/closed", RequireSession(), func(c *gin.Context) {
		*seen = FromContext(c)
		c.Status(http.StatusNoContent)
	})
	return r, verifier, seen
}

func do(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnonymousRequests(t *testing.T) {
	r, _, seen := newRouter(t)

	w := do(r, "/open", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, seen.Authenticated())
	assert.NotEmpty(t, w.Header().Get(events.RequestIDHeader))

	w = do(r, "/closed", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	r, verifier, seen := newRouter(t)
	userID := uuid.New()
	token, err := verifier.Issue(userID, session.RoleVoter, "ana@uni.edu", time.Hour)
	require.NoError(t, err)

	w := do(r, "/closed", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, userID, seen.UserID)
	assert.Equal(t, session.RoleVoter, seen.Role)

	w = do(r, "/open", map[string]string{"Authorization": "Bearer not.a.jwt"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/open", map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := verifier.Issue(userID, session.RoleVoter, "", -time.Minute)
	require.NoError(t, err)
	w = do(r, "/open", map[string]string{"Authorization": "Bearer " + expired})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceKeyElevatesAdminsOnly(t *testing.T) {
	r, verifier, seen := newRouter(t)

	admin, err := verifier.Issue(uuid.New(), session.RoleAdmin, "", time.Hour)
	require.NoError(t, err)
	voter, err := verifier.Issue(uuid.New(), session.RoleVoter, "", time.Hour)
	require.NoError(t, err)

	do(r, "/closed", map[string]string{"Authorization": "Bearer " + admin, ServiceKeyHeader: "llave-de-servicio"})
	assert.True(t, seen.Elevated)

	do(r, "/closed", map[string]string{"Authorization": "Bearer " + admin, ServiceKeyHeader: "otra"})
	assert.False(t, seen.Elevated)

	do(r, "/closed", map[string]string{"Authorization": "Bearer " + voter, ServiceKeyHeader: "llave-de-servicio"})
	assert.False(t, seen.Elevated)

	do(r, "/closed", map[string]string{"Authorization": "Bearer " + admin})
	assert.False(t, seen.Elevated)
}

func TestRequestIDIsPropagated(t *testing.T) {
	r, _, _ := newRouter(t)
	id := uuid.NewString()

	w := do(r, "/open", map[string]string{events.RequestIDHeader: id})
	assert.Equal(t, id, w.Header().Get(events.RequestIDHeader))

	w = do(r, "/open", map[string]string{events.RequestIDHeader: "<script>"})
	assert.NotEqual(t, "<script>", w.Header().Get(events.RequestIDHeader))
}
