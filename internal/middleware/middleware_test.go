package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/accrediflow-api/internal/models"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

type auditStoreStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditStoreStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

type observerStub struct {
	path   string
	status int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.path = path
	o.status = status
}

func newTestRouter(claims *models.JWTClaims, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	chain := append([]gin.HandlerFunc{JWT(validatorStub{claims: claims})}, handlers...)
	chain = append(chain, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.PUT("/documents/:id/status", chain...)
	return router
}

func serve(router *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/documents/doc-1/status", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	router := newTestRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleHOD})

	for _, header := range []string{"", "Token good", "Bearer ", "Bearer bad"} {
		rec := serve(router, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCodeOf(t, rec))
	}
	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer good").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, "bearer good").Code)
}

func TestRequireRoles(t *testing.T) {
	allowed := newTestRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleHOD}, RequireRoles(models.RoleHOD, models.RoleCoordinator))
	assert.Equal(t, http.StatusNoContent, serve(allowed, "Bearer good").Code)

	denied := newTestRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleFaculty}, RequireRoles(models.RoleHOD, models.RoleCoordinator))
	rec := serve(denied, "Bearer good")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCodeOf(t, rec))
}

func TestRequireRolesWithoutJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	store := &auditStoreStub{err: errors.New("ignored")}
	router := newTestRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleHOD}, Audit(store, nil, models.AuditActionDocumentDecision, "document"))

	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer good").Code)
	require.Len(t, store.logs, 1)
	log := store.logs[0]
	assert.Equal(t, models.AuditActionDocumentDecision, log.Action)
	require.NotNil(t, log.UserID)
	assert.Equal(t, "u1", *log.UserID)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "doc-1", *log.ResourceID)

	serve(router, "Bearer bad")
	assert.Len(t, store.logs, 1)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &observerStub{}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/documents/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/abc", nil))
	assert.Equal(t, "/documents/:id", observer.path)
	assert.Equal(t, http.StatusOK, observer.status)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, "unmatched", observer.path)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/", func(c *gin.Context) {
		SetMeta(c, "count", 3)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, meta)
	assert.Equal(t, 3, meta["count"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "started_at")
}
