// Package uploader pushes a single local file into a generic artifact
// repository with one Basic-authenticated HTTP PUT.
package uploader

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"artifact-uploader/internal/localfs"
	"artifact-uploader/internal/logger"
	apperrors "artifact-uploader/pkg/errors"
	"artifact-uploader/pkg/validator"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeBinary   = "application/octet-stream"
	headerLocation      = "Location"
	basicAuthPrefix     = "Basic "

	errInvalidBaseURLFmt    = "invalid base URL %q: %v"
	errUnsendableTargetFmt  = "request target %q contains %q, which cannot be sent unescaped"
	errBuildRequestFmt      = "failed to build request: %v"
	errTransportMessageFmt  = "PUT %s"
	errRejectionMessageFmt  = "HTTP %d %s"
	errRequestValidationFmt = "invalid upload request: %s"
)

// Request describes one upload. Every field is required.
type Request struct {
	BaseURL       string `flag:"base-url" validate:"required"`
	Repository    string `flag:"repo" validate:"required"`
	TargetPath    string `flag:"target-path" validate:"required"`
	LocalFilePath string `flag:"file" validate:"required"`
	Username      string `flag:"username" validate:"required"`
	Password      string `flag:"password" validate:"required"`
}

// Validate reports every empty field as a single ErrInvalidInput.
func (r Request) Validate() error {
	if problems := validator.Flags(r); len(problems) > 0 {
		return apperrors.InvalidInput(fmt.Sprintf(errRequestValidationFmt, strings.Join(problems, "; ")))
	}
	return nil
}

// Result is the outcome of a PUT that reached the server.
type Result struct {
	StatusCode int
	Reason     string
	Succeeded  bool
	// Body is only filled for rejected uploads; empty means the server sent none.
	Body string
}

// RejectionError is returned alongside the Result when the server answers
// with a non-2xx status.
type RejectionError struct {
	StatusCode int
	Reason     string
	Body       string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf(errRejectionMessageFmt, e.StatusCode, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return apperrors.ErrServerRejected
}

// PreparedUpload holds everything needed for the PUT. Once it exists the
// local file has been read and nothing else can fail before the network call.
type PreparedUpload struct {
	TargetURL  string
	RequestURL string
	Payload    []byte

	// origin is the parsed scheme and host; target is the rest of
	// RequestURL, sent as the request line verbatim.
	origin   string
	target   string
	username string
	password string
}

// Uploader performs uploads. The zero value is not usable; call New.
type Uploader struct {
	client  *http.Client
	files   *localfs.FS
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithHTTPClient replaces the default client. The caller owns its redirect
// policy; the default never follows redirects.
func WithHTTPClient(client *http.Client) Option {
	return func(u *Uploader) {
		u.client = client
	}
}

// WithFS replaces the OS filesystem used to read the local file.
func WithFS(files *localfs.FS) Option {
	return func(u *Uploader) {
		u.files = files
	}
}

// WithLogger sets the diagnostics logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(u *Uploader) {
		u.logger = l
	}
}

// WithTimeout bounds the whole HTTP exchange. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(u *Uploader) {
		u.timeout = d
	}
}

// New returns an Uploader reading from the OS filesystem and sending with a
// client that reports redirects instead of following them.
func New(opts ...Option) *Uploader {
	u := &Uploader{
		client: newHTTPClient(),
		files:  localfs.NewOS(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload is Prepare followed by Send.
func (u *Uploader) Upload(ctx context.Context, req Request) (*Result, error) {
	prepared, err := u.Prepare(req)
	if err != nil {
		return nil, err
	}
	return u.Send(ctx, prepared)
}

// Prepare validates req, reads the local file and builds the upload URLs.
// It performs no network activity.
func (u *Uploader) Prepare(req Request) (*PreparedUpload, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := u.files.ReadFile(req.LocalFilePath)
	if err != nil {
		return nil, err
	}

	requestURL := UploadURL(req.BaseURL, req.Repository, req.TargetPath)
	origin, target, err := SplitRequestURL(requestURL)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf(errInvalidBaseURLFmt, req.BaseURL, err))
	}

	u.logger.Debug("upload prepared",
		"file", req.LocalFilePath,
		"bytes", len(payload),
		"url", requestURL,
		"username", req.Username,
	)

	return &PreparedUpload{
		TargetURL:  TargetURL(req.BaseURL, req.Repository, req.TargetPath),
		RequestURL: requestURL,
		Payload:    payload,
		origin:     origin.String(),
		target:     target,
		username:   req.Username,
		password:   req.Password,
	}, nil
}

// Send issues the PUT and interprets the response. A non-2xx answer returns
// both the Result and a *RejectionError; transport failures return only an
// error matching ErrTransport.
func (u *Uploader) Send(ctx context.Context, p *PreparedUpload) (*Result, error) {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	if i := strings.IndexFunc(p.target, unsendable); i >= 0 {
		err := fmt.Errorf(errUnsendableTargetFmt, p.target, p.target[i:i+1])
		u.logger.Error("upload transport failure", "url", p.RequestURL, "error", err)
		return nil, apperrors.Transport(fmt.Sprintf(errTransportMessageFmt, p.TargetURL), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, p.origin, bytes.NewReader(p.Payload))
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf(errBuildRequestFmt, err))
	}
	setRequestTarget(httpReq, p.target)
	httpReq.Header.Set(headerAuthorization, BasicAuth(p.username, p.password))
	httpReq.Header.Set(headerContentType, contentTypeBinary)

	start := time.Now()
	u.logger.Info("sending upload", "url", p.RequestURL, "bytes", len(p.Payload))

	resp, err := u.client.Do(httpReq)
	if err != nil {
		// The url.Error wrapper would print the opaque form of the URL.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		u.logger.Error("upload transport failure", "url", p.RequestURL, "error", err)
		return nil, apperrors.Transport(fmt.Sprintf(errTransportMessageFmt, p.TargetURL), err)
	}
	defer resp.Body.Close()

	result := &Result{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Succeeded:  resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices,
	}

	u.logger.Info("upload response",
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if isRedirect(resp.StatusCode) {
		u.logger.Warn("upload redirected, not following", "status", resp.StatusCode, "location", resp.Header.Get(headerLocation))
	}

	if result.Succeeded {
		_, _ = io.Copy(io.Discard, resp.Body)
		return result, nil
	}

	// A partial body is still worth showing.
	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		u.logger.Warn("failed to read rejection body", "error", readErr)
	}
	result.Body = DecodeBody(raw)

	return result, &RejectionError{
		StatusCode: result.StatusCode,
		Reason:     result.Reason,
		Body:       result.Body,
	}
}

// A redirected PUT is re-sent as a body-less GET, so the final status would
// not describe the upload. The 3xx itself is returned instead.
func newHTTPClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// setRequestTarget puts target on the request line untouched. A target
// starting with "//" would be read as an authority, and plain HTTP through a
// proxy needs the host on the line, so both get the absolute form.
func setRequestTarget(req *http.Request, target string) {
	req.URL.Opaque = target
	if strings.HasPrefix(target, "//") || viaPlainProxy(req) {
		req.URL.Opaque = "//" + req.URL.Host + target
	}
}

func viaPlainProxy(req *http.Request) bool {
	if req.URL.Scheme != schemeHTTP {
		return false
	}
	proxy, err := http.ProxyFromEnvironment(req)
	return err == nil && proxy != nil
}

func isRedirect(status int) bool {
	return status >= http.StatusMultipleChoices && status < http.StatusBadRequest
}

// Spaces and control characters would break the request line.
func unsendable(r rune) bool {
	return r <= ' ' || r == 0x7f
}

// BasicAuth returns the Authorization header value for username and password.
// Both are taken as UTF-8 bytes; a colon inside the username is not rejected.
func BasicAuth(username, password string) string {
	return basicAuthPrefix + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// DecodeBody turns a response body into text, dropping invalid UTF-8 bytes.
func DecodeBody(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
