package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newProtectedRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", mw...)
	g.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
			"role":    c.GetString(CtxRoleKey),
		})
	})
	return r
}

func do(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newProtectedRouter(RequireAuth(testSecret))

	t.Run("accepts a valid HS256 token", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  "E-100",
			"role": "admin",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		w := do(r, "Bearer "+token)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d (body=%s)", w.Code, w.Body.String())
		}
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		if w := do(r, ""); w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("rejects a malformed header", func(t *testing.T) {
		if w := do(r, "Token abc"); w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("rejects a token signed with the wrong secret", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "E-100"}).
			SignedString([]byte("other-secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if w := do(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "E-100",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		if w := do(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("rejects a token without sub", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin"})
		if w := do(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})
}

func TestRequireRole(t *testing.T) {
	r := newProtectedRouter(RequireAuth(testSecret), RequireRole("admin"))

	t.Run("allows the named role", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "E-100", "role": "admin"})
		if w := do(r, "Bearer "+token); w.Code != http.StatusOK {
			t.Fatalf("status = %d (body=%s)", w.Code, w.Body.String())
		}
	})

	t.Run("forbids other roles", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "E-100", "role": "employee"})
		if w := do(r, "Bearer "+token); w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})

	t.Run("forbids a token with no role", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "E-100"})
		if w := do(r, "Bearer "+token); w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})
}
