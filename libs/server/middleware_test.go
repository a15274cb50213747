package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/stardustagi/HoloServe/libs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestJWTAuthValidToken(t *testing.T) {
	const secret = "test-secret"
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "caller"}).
		SignedString([]byte(secret))
	require.NoError(t, err)

	called := false
	mw := JWTAuth(secret)(func(c echo.Context) error {
		called = true
		return nil
	})
	c, _ := newAuthContext("Bearer " + token)
	require.NoError(t, mw(c))
	assert.True(t, called)
}

func TestJWTAuthMissingHeader(t *testing.T) {
	mw := JWTAuth("test-secret")(func(c echo.Context) error { return nil })
	c, _ := newAuthContext("")
	err := mw(c)
	require.Error(t, err)
	assert.Equal(t, "unauthorized", errors.From(err).Key())
}

func TestJWTAuthWrongSecret(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "caller"}).
		SignedString([]byte("other-secret"))
	require.NoError(t, err)

	mw := JWTAuth("test-secret")(func(c echo.Context) error { return nil })
	c, _ := newAuthContext("Bearer " + token)
	assert.Error(t, mw(c))
}

func TestJWTAuthRejectsNoneAlgorithm(t *testing.T) {
	// alg=none 不允许
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "caller"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	mw := JWTAuth("test-secret")(func(c echo.Context) error { return nil })
	c, _ := newAuthContext("Bearer " + token)
	assert.Error(t, mw(c))
}

func TestRequestIDMiddleware(t *testing.T) {
	mw := RequestIDMiddleware()(func(c echo.Context) error {
		assert.NotEmpty(t, RequestID(c))
		return nil
	})
	c, rec := newAuthContext("")
	require.NoError(t, mw(c))
	assert.NotEmpty(t, rec.Header().Get(RequestIDKey))
}
