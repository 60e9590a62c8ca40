// Package repostub runs an in-memory generic artifact repository over HTTP.
// It accepts uploads the way a generic repository does (PUT /<repo>/<path>
// with optional matrix parameters) and records every request it sees, so
// upload code can be tested end to end without a real server.
package repostub

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	realm          = "Artifact Repository"
	repoParam      = "repo"
	matrixSep      = ";"
	pathSeparator  = "/"
	routeArtifacts = "/:" + repoParam + "/*"
)

// RecordedRequest is a request as the stub received it.
type RecordedRequest struct {
	Method     string
	RequestURI string
	Header     http.Header
	Body       []byte
	RequestID  string
}

// CreatedResponse is the JSON body returned for a stored artifact.
type CreatedResponse struct {
	Repo        string    `json:"repo"`
	Path        string    `json:"path"`
	Size        int       `json:"size"`
	DownloadURI string    `json:"downloadUri"`
	Created     time.Time `json:"created"`
	RequestID   string    `json:"requestId"`
}

type forcedResponse struct {
	status   int
	body     string
	location string
}

// Server is a running stub repository. Close it when done.
type Server struct {
	echo *echo.Echo
	srv  *httptest.Server

	username string
	password string

	mu       sync.Mutex
	objects  map[string][]byte
	requests []RecordedRequest
	forced   *forcedResponse
}

// Option configures a Server.
type Option func(*Server)

// WithCredentials makes the stub require Basic auth with the given pair.
func WithCredentials(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// New starts a stub on a random local port.
func New(opts ...Option) *Server {
	s := &Server{
		echo:    echo.New(),
		objects: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(requestID(), s.record())

	s.echo.PUT(routeArtifacts, s.handlePut, s.basicAuth())
	s.echo.GET(routeArtifacts, s.handleGet, s.basicAuth())

	s.srv = httptest.NewServer(s.echo)
	return s
}

// URL is the base URL of the stub.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the stub down.
func (s *Server) Close() {
	s.srv.Close()
}

// Respond forces every following artifact request to be answered with status
// and body instead of being handled.
func (s *Server) Respond(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = &forcedResponse{status: status, body: body}
}

// Redirect forces every following artifact request to be answered with a
// redirect status pointing at location.
func (s *Server) Redirect(status int, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = &forcedResponse{status: status, location: location}
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Object returns the stored bytes for repo/path.
func (s *Server) Object(repo, path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[objectKey(repo, path)]
	return data, ok
}

func (s *Server) handlePut(c echo.Context) error {
	if resp, ok := s.override(); ok {
		return respondForced(c, resp)
	}

	repo, path := artifactAddress(c)
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.objects[objectKey(repo, path)] = body
	s.mu.Unlock()

	return c.JSON(http.StatusCreated, CreatedResponse{
		Repo:        repo,
		Path:        pathSeparator + path,
		Size:        len(body),
		DownloadURI: s.URL() + pathSeparator + objectKey(repo, path),
		Created:     time.Now().UTC(),
		RequestID:   getRequestID(c),
	})
}

func (s *Server) handleGet(c echo.Context) error {
	if resp, ok := s.override(); ok {
		return respondForced(c, resp)
	}

	repo, path := artifactAddress(c)
	data, ok := s.Object(repo, path)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "File not found.")
	}
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}

func (s *Server) override() (forcedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forced == nil {
		return forcedResponse{}, false
	}
	return *s.forced, true
}

func respondForced(c echo.Context, resp forcedResponse) error {
	if resp.location != "" {
		c.Response().Header().Set(echo.HeaderLocation, resp.location)
	}
	if resp.body == "" {
		return c.NoContent(resp.status)
	}
	return c.String(resp.status, resp.body)
}

// artifactAddress splits the route into repository and path, dropping any
// matrix parameters.
func artifactAddress(c echo.Context) (string, string) {
	path := c.Param("*")
	if i := strings.Index(path, matrixSep); i >= 0 {
		path = path[:i]
	}
	return c.Param(repoParam), strings.TrimLeft(path, pathSeparator)
}

func objectKey(repo, path string) string {
	return repo + pathSeparator + path
}
