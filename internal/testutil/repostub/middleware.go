package repostub

import (
	"bytes"
	"crypto/subtle"
	"io"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"

	requestIDContextKey = "request_id"
)

// requestID generates or extracts a request ID and exposes it on the
// response and in the echo context.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}

			c.Set(requestIDContextKey, id)
			c.Response().Header().Set(RequestIDHeader, id)

			return next(c)
		}
	}
}

func getRequestID(c echo.Context) string {
	if id, ok := c.Get(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// record captures every request, rejected ones included, before auth runs.
func (s *Server) record() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			body, err := io.ReadAll(req.Body)
			if err != nil {
				return err
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			s.mu.Lock()
			s.requests = append(s.requests, RecordedRequest{
				Method:     req.Method,
				RequestURI: req.RequestURI,
				Header:     req.Header.Clone(),
				Body:       body,
				RequestID:  getRequestID(c),
			})
			s.mu.Unlock()

			return next(c)
		}
	}
}

// basicAuth enforces the configured credentials; with none configured every
// request is let through.
func (s *Server) basicAuth() echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Skipper: func(echo.Context) bool {
			return s.username == ""
		},
		Validator: func(username, password string, _ echo.Context) (bool, error) {
			userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
			return userOK && passOK, nil
		},
		Realm: realm,
	})
}
