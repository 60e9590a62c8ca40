package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"artifact-uploader/internal/localfs"
	"artifact-uploader/internal/testutil/repostub"
	"artifact-uploader/internal/uploader"
	apperrors "artifact-uploader/pkg/errors"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type run struct {
	code   int
	stdout string
	stderr string
}

func execute(t *testing.T, files map[string]string, args ...string) run {
	t.Helper()

	mem := memfs.New()
	for name, data := range files {
		require.NoError(t, util.WriteFile(mem, name, []byte(data), 0o644))
	}

	var stdout, stderr bytes.Buffer
	code := New(&stdout, &stderr, uploader.WithFS(localfs.New(mem))).
		Execute(context.Background(), args)

	return run{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func uploadArgs(baseURL string, extra ...string) []string {
	return append([]string{
		"--base-url", baseURL,
		"--repo", "generic-local",
		"--file", "/dist/app.bin",
		"--target-path", "/tools/app.bin",
		"--username", "ci",
		"--password", "s3cret",
	}, extra...)
}

func TestExecute_UploadOK(t *testing.T) {
	stub := repostub.New(repostub.WithCredentials("ci", "s3cret"))
	defer stub.Close()

	got := execute(t, map[string]string{"/dist/app.bin": "binary"}, uploadArgs(stub.URL()+"/")...)

	assert.Equal(t, ExitOK, got.code)
	assert.Equal(t, fmt.Sprintf("Uploading to: %s/generic-local/tools/app.bin\nUpload OK: HTTP 201\n", stub.URL()), got.stdout)
	assert.Empty(t, got.stderr)

	data, ok := stub.Object("generic-local", "tools/app.bin")
	require.True(t, ok)
	assert.Equal(t, "binary", string(data))
}

func TestExecute_UploadRejected(t *testing.T) {
	stub := repostub.New()
	defer stub.Close()
	stub.Respond(http.StatusForbidden, "Forbidden")

	got := execute(t, map[string]string{"/dist/app.bin": "binary"}, uploadArgs(stub.URL())...)

	assert.Equal(t, ExitRejected, got.code)
	assert.Equal(t, fmt.Sprintf("Uploading to: %s/generic-local/tools/app.bin\nUpload failed: HTTP 403 Forbidden\nForbidden\n", stub.URL()), got.stdout)
	assert.Empty(t, got.stderr)
}

func TestExecute_RejectedWithoutBody(t *testing.T) {
	stub := repostub.New()
	defer stub.Close()
	stub.Respond(http.StatusInternalServerError, "")

	got := execute(t, map[string]string{"/dist/app.bin": "binary"}, uploadArgs(stub.URL())...)

	assert.Equal(t, ExitRejected, got.code)
	assert.Equal(t, fmt.Sprintf("Uploading to: %s/generic-local/tools/app.bin\nUpload failed: HTTP 500 Internal Server Error\n", stub.URL()), got.stdout)
}

func TestExecute_RedirectIsRejected(t *testing.T) {
	tests := []struct {
		name     string
		location string
	}{
		{"with location", "/elsewhere/app.bin"},
		{"without location", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := repostub.New()
			defer stub.Close()
			if tt.location != "" {
				stub.Redirect(http.StatusFound, tt.location)
			} else {
				stub.Respond(http.StatusFound, "")
			}

			got := execute(t, map[string]string{"/dist/app.bin": "binary"}, uploadArgs(stub.URL())...)

			assert.Equal(t, ExitRejected, got.code)
			assert.Equal(t, fmt.Sprintf("Uploading to: %s/generic-local/tools/app.bin\nUpload failed: HTTP 302 Found\n", stub.URL()), got.stdout)
			assert.Equal(t, 1, stub.RequestCount())
			_, stored := stub.Object("generic-local", "tools/app.bin")
			assert.False(t, stored)
		})
	}
}

func TestExecute_TargetPathSentUnescaped(t *testing.T) {
	stub := repostub.New()
	defer stub.Close()

	args := uploadArgs(stub.URL())
	args[7] = "tools/ä.bin"

	got := execute(t, map[string]string{"/dist/app.bin": "binary"}, args...)

	assert.Equal(t, ExitOK, got.code)
	assert.Equal(t, fmt.Sprintf("Uploading to: %s/generic-local/tools/ä.bin\nUpload OK: HTTP 201\n", stub.URL()), got.stdout)
	recorded := stub.Requests()
	require.Len(t, recorded, 1)
	assert.Equal(t, "/generic-local/tools/ä.bin;charset=UTF-8", recorded[0].RequestURI)
}

func TestExecute_TargetPathWithSpace(t *testing.T) {
	stub := repostub.New()
	defer stub.Close()

	args := uploadArgs(stub.URL())
	args[7] = "dir with space/app.bin"

	got := execute(t, map[string]string{"/dist/app.bin": "binary"}, args...)

	assert.Equal(t, ExitTransport, got.code)
	assert.Equal(t, fmt.Sprintf("Uploading to: %s/generic-local/dir with space/app.bin\n", stub.URL()), got.stdout)
	assert.Contains(t, got.stderr, "Upload error: ")
	assert.Contains(t, got.stderr, "cannot be sent unescaped")
	assert.Equal(t, 0, stub.RequestCount())
}

func TestExecute_InvalidBaseURL(t *testing.T) {
	got := execute(t, map[string]string{"/dist/app.bin": "binary"}, uploadArgs("ftp://repo.local")...)

	assert.Equal(t, ExitUsage, got.code)
	assert.Empty(t, got.stdout)
	assert.Contains(t, got.stderr, `invalid base URL "ftp://repo.local"`)
}

func TestExecute_FileNotFound(t *testing.T) {
	stub := repostub.New()
	defer stub.Close()

	got := execute(t, nil, uploadArgs(stub.URL())...)

	assert.Equal(t, ExitLocalFile, got.code)
	assert.Equal(t, "File not found: /dist/app.bin\n", got.stdout)
	assert.Equal(t, 0, stub.RequestCount())
}

func TestExecute_FileIsDirectory(t *testing.T) {
	stub := repostub.New()
	defer stub.Close()

	got := execute(t, map[string]string{"/dist/app.bin/inner": "x"}, uploadArgs(stub.URL())...)

	assert.Equal(t, ExitLocalFile, got.code)
	assert.Equal(t, "File not readable: /dist/app.bin\n", got.stdout)
	assert.Equal(t, 0, stub.RequestCount())
}

func TestExecute_TransportFailure(t *testing.T) {
	stub := repostub.New()
	baseURL := stub.URL()
	stub.Close()

	got := execute(t, map[string]string{"/dist/app.bin": "binary"}, uploadArgs(baseURL)...)

	assert.Equal(t, ExitTransport, got.code)
	assert.Equal(t, fmt.Sprintf("Uploading to: %s/generic-local/tools/app.bin\n", baseURL), got.stdout)
	assert.Contains(t, got.stderr, "Upload error: ")
	assert.NotContains(t, got.stderr, "s3cret")
}

func TestExecute_MissingRequiredFlag(t *testing.T) {
	got := execute(t, nil, "--base-url", "http://repo.local", "--repo", "libs")

	assert.Equal(t, ExitUsage, got.code)
	assert.Empty(t, got.stdout)
	assert.Contains(t, got.stderr, "required flag(s)")
	assert.Contains(t, got.stderr, `"password"`)
	assert.Contains(t, got.stderr, "Usage:")
}

func TestExecute_EmptyFlagValue(t *testing.T) {
	stub := repostub.New()
	defer stub.Close()

	args := uploadArgs(stub.URL())
	args[3] = ""

	got := execute(t, map[string]string{"/dist/app.bin": "binary"}, args...)

	assert.Equal(t, ExitUsage, got.code)
	assert.Contains(t, got.stderr, "--repo is required")
	assert.Equal(t, 0, stub.RequestCount())
}

func TestExecute_UnknownFlag(t *testing.T) {
	got := execute(t, nil, append(uploadArgs("http://repo.local"), "--retries", "3")...)

	assert.Equal(t, ExitUsage, got.code)
	assert.Contains(t, got.stderr, "unknown flag: --retries")
}

func TestExecute_Help(t *testing.T) {
	got := execute(t, nil, "--help")

	assert.Equal(t, ExitOK, got.code)
	assert.Contains(t, got.stdout, "--target-path")
	assert.Contains(t, got.stdout, "--base-url")
}

func TestExecute_DiagnosticsStayOffStdout(t *testing.T) {
	stub := repostub.New()
	defer stub.Close()

	got := execute(t, map[string]string{"/dist/app.bin": "binary"}, uploadArgs(stub.URL(), "--log-level", "debug", "--log-format", "json")...)

	assert.Equal(t, ExitOK, got.code)
	assert.Equal(t, fmt.Sprintf("Uploading to: %s/generic-local/tools/app.bin\nUpload OK: HTTP 201\n", stub.URL()), got.stdout)
	assert.Contains(t, got.stderr, `"upload_id"`)
	assert.Contains(t, got.stderr, `"msg":"sending upload"`)
	assert.NotContains(t, got.stderr, "s3cret")
}

func TestExecute_LogFileIsClosed(t *testing.T) {
	stub := repostub.New()
	defer stub.Close()

	logFile := filepath.Join(t.TempDir(), "logs", "uploader.log")
	got := execute(t, map[string]string{"/dist/app.bin": "binary"}, uploadArgs(stub.URL(), "--log-level", "debug", "--log-file", logFile)...)

	assert.Equal(t, ExitOK, got.code)
	assert.Empty(t, got.stderr)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sending upload")
	assert.NotContains(t, string(data), "s3cret")
	assert.NoError(t, os.Remove(logFile))
}

func TestExecute_RepeatedInvocations(t *testing.T) {
	stub := repostub.New()
	defer stub.Close()

	files := map[string]string{"/dist/app.bin": "binary"}
	first := execute(t, files, uploadArgs(stub.URL())...)
	second := execute(t, files, uploadArgs(stub.URL())...)

	assert.Equal(t, ExitOK, first.code)
	assert.Equal(t, ExitOK, second.code)
	assert.Equal(t, first.stdout, second.stdout)
	assert.Equal(t, 2, stub.RequestCount())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitOK},
		{"rejected", &uploader.RejectionError{StatusCode: 409, Reason: "Conflict"}, ExitRejected},
		{"missing file", apperrors.FileNotFound("/x"), ExitLocalFile},
		{"unreadable file", apperrors.FileUnreadable("/x", errors.New("permission denied")), ExitLocalFile},
		{"transport", apperrors.Transport("PUT /x", errors.New("connection refused")), ExitTransport},
		{"invalid input", apperrors.InvalidInput("bad"), ExitUsage},
		{"cobra usage", errors.New(`required flag(s) "repo" not set`), ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
