package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/eduflow-app/eduflow-api/internal/models"
)

func roleGuardedRouter(claims *models.JWTClaims, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	})
	r.GET("/guarded", RequireRoles(roles...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireRolesBlocksAnonymous(t *testing.T) {
	r := roleGuardedRouter(nil, models.RoleInstructor, models.RoleAdmin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolesBlocksUnlistedRole(t *testing.T) {
	student := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}
	r := roleGuardedRouter(student, models.RoleInstructor, models.RoleAdmin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesAllowsListedRoles(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleInstructor, models.RoleAdmin} {
		r := roleGuardedRouter(&models.JWTClaims{UserID: "u-1", Role: role}, models.RoleInstructor, models.RoleAdmin)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
		assert.Equal(t, http.StatusOK, w.Code, string(role))
	}
}
