package cli

import (
	"errors"
	"fmt"
	"io"

	"artifact-uploader/internal/uploader"
	apperrors "artifact-uploader/pkg/errors"
)

const (
	uploadingFmt      = "Uploading to: %s\n"
	uploadOKFmt       = "Upload OK: HTTP %d\n"
	uploadFailedFmt   = "Upload failed: HTTP %d %s\n"
	fileNotFoundFmt   = "File not found: %s\n"
	fileUnreadableFmt = "File not readable: %s\n"
	uploadErrorFmt    = "Upload error: %v\n"
)

func reportResult(w io.Writer, result *uploader.Result) {
	if result.Succeeded {
		fmt.Fprintf(w, uploadOKFmt, result.StatusCode)
		return
	}

	fmt.Fprintf(w, uploadFailedFmt, result.StatusCode, result.Reason)
	if result.Body != "" {
		fmt.Fprintln(w, result.Body)
	}
}

// Local file problems belong to the user-facing report; anything else
// found before sending is a usage problem.
func reportPrepareError(stdout, stderr io.Writer, path string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrFileNotFound):
		fmt.Fprintf(stdout, fileNotFoundFmt, path)
	case errors.Is(err, apperrors.ErrFileUnreadable):
		fmt.Fprintf(stdout, fileUnreadableFmt, path)
		fmt.Fprintf(stderr, uploadErrorFmt, err)
	default:
		fmt.Fprintf(stderr, usageErrorPrefixFmt, err)
	}
}

func reportSendError(w io.Writer, err error) {
	fmt.Fprintf(w, uploadErrorFmt, err)
}
