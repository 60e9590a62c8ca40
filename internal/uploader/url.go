package uploader

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MatrixSuffix is appended to every upload URL; generic repositories read it as
// the charset of the stored artifact.
const MatrixSuffix = ";charset=UTF-8"

const (
	pathSeparator   = "/"
	schemeSeparator = "://"
	schemeHTTP      = "http"
	schemeHTTPS     = "https"

	errUnsupportedSchemeFmt = "unsupported scheme %q"
)

var (
	errMissingScheme = errors.New("missing scheme")
	errMissingHost   = errors.New("missing host")
)

// TargetURL joins the three address parts of an artifact. Segments are not
// escaped: callers pass paths through exactly as they want them on the wire.
func TargetURL(baseURL, repository, targetPath string) string {
	return strings.TrimRight(baseURL, pathSeparator) +
		pathSeparator + repository +
		pathSeparator + strings.TrimLeft(targetPath, pathSeparator)
}

// UploadURL is TargetURL with the matrix parameter the PUT is sent to.
func UploadURL(baseURL, repository, targetPath string) string {
	return TargetURL(baseURL, repository, targetPath) + MatrixSuffix
}

// SplitRequestURL cuts a built upload URL into its origin (scheme and
// authority) and the request target that follows it. Only the origin is
// parsed; the target comes back byte for byte so it is never re-escaped.
func SplitRequestURL(raw string) (*url.URL, string, error) {
	i := strings.Index(raw, schemeSeparator)
	if i <= 0 {
		return nil, "", errMissingScheme
	}

	cut := len(raw)
	if j := strings.Index(raw[i+len(schemeSeparator):], pathSeparator); j >= 0 {
		cut = i + len(schemeSeparator) + j
	}

	origin, err := url.Parse(raw[:cut])
	if err != nil {
		return nil, "", err
	}
	if origin.Scheme != schemeHTTP && origin.Scheme != schemeHTTPS {
		return nil, "", fmt.Errorf(errUnsupportedSchemeFmt, origin.Scheme)
	}
	if origin.Host == "" {
		return nil, "", errMissingHost
	}

	target := raw[cut:]
	if target == "" {
		target = pathSeparator
	}
	return origin, target, nil
}
