package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/logger"
	mockauth "github.com/amirhossein-jamali/mwallet/mocks/port/auth"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errs.NewValidationError(), http.StatusBadRequest},
		{"insufficient balance", errs.NewInsufficientBalanceError("u1", "10.00", "5.00"), http.StatusBadRequest},
		{"wrapped invalid request", fmt.Errorf("%w: bad json", errs.ErrInvalidRequest), http.StatusBadRequest},
		{"missing session", errs.ErrMissingSession, http.StatusUnauthorized},
		{"bad credentials", errs.ErrInvalidCredentials, http.StatusUnauthorized},
		{"incorrect pin", errs.ErrIncorrectPIN, http.StatusForbidden},
		{"receiver not found", errs.ErrReceiverNotFound, http.StatusNotFound},
		{"submission not found", errs.ErrSubmissionNotFound, http.StatusNotFound},
		{"duplicate email", errs.ErrDuplicateEmail, http.StatusConflict},
		{"not pending", errs.ErrSubmissionNotPending, http.StatusConflict},
		{"locked", errs.ErrUserLocked, http.StatusLocked},
		{"payment failed", errs.NewPaymentFailedError("transfer", "s1", "u1", errors.New("disk full")), http.StatusInternalServerError},
		{"store down", errs.NewPaymentFailedError("transfer", "s1", "u1", errs.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestRequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := mockauth.NewMockSessionProvider(t)
	sessions.On("CurrentSession", mock.Anything, "Bearer good").
		Return(&auth.Session{UserID: "alice", TokenID: "t1"}, nil)
	sessions.On("CurrentSession", mock.Anything, "").
		Return(nil, errs.ErrMissingSession)

	router := gin.New()
	router.Use(ErrorHandler(logger.NewNoopLogger()))
	router.GET("/me", RequireSession(sessions), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentSession(c).UserID)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil).WithContext(context.Background()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"code":4101,"message":"Please login"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	call := func(h http.Handler, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/banks", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("Wildcard never allows credentials", func(t *testing.T) {
		rec := call(CORS([]string{"*"})(ok), "https://evil.example")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Listed origin is allowed", func(t *testing.T) {
		rec := call(CORS([]string{" http://wallet.local/ "})(ok), "http://wallet.local")
		assert.Equal(t, "http://wallet.local", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Unlisted origin gets no headers", func(t *testing.T) {
		rec := call(CORS([]string{"http://wallet.local"})(ok), "https://evil.example")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Empty list disables cross-origin access", func(t *testing.T) {
		rec := call(CORS(nil)(ok), "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
