package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/fabos/estimation-service/internal/model"
)

type parserFunc func(string) (model.Principal, error)

func (f parserFunc) Parse(raw string) (model.Principal, error) { return f(raw) }

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()
	parser := parserFunc(func(raw string) (model.Principal, error) {
		if raw != "good" {
			return model.Principal{}, errors.New("bad token")
		}
		return model.Principal{UserID: userID, Role: model.UserRoleAdmin}, nil
	})

	router := gin.New()
	router.GET("/me", Auth(parser), func(c *gin.Context) {
		principal, ok := MustPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, principal.UserID.String())
	})

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{name: "missing header", header: "", code: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", code: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer  ", code: http.StatusUnauthorized},
		{name: "rejected token", header: "Bearer bad", code: http.StatusUnauthorized},
		{name: "valid token", header: "bearer good", code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, userID.String(), rec.Body.String())
			}
		})
	}
}

func TestMustPrincipalWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := MustPrincipal(c)
	assert.False(t, ok)
}
