package transport

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/richard-senior/footstats/internal/logger"
)

// CABundleEnv names an optional PEM file of extra root certificates, for
// networks that intercept TLS
const CABundleEnv = "EXTRA_CA_BUNDLE"

// NewHTTPClient returns a client trusting the system roots plus any bundle
// named by EXTRA_CA_BUNDLE
func NewHTTPClient(timeout time.Duration) *http.Client {
	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		logger.Warn("Failed to get system cert pool", err)
		rootCAs = x509.NewCertPool()
	}

	if path := os.Getenv(CABundleEnv); path != "" {
		pem, err := os.ReadFile(path)
		switch {
		case err != nil:
			logger.Warn("Failed to read CA bundle", path, err)
		case !rootCAs.AppendCertsFromPEM(pem):
			logger.Warn("No certificates found in CA bundle", path)
		default:
			logger.Info("Added CA bundle to root CAs", path)
		}
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: rootCAs},
			Proxy:           http.ProxyFromEnvironment,
		},
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// StatusError is returned for any non-200 response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request returned error status %d: %s", e.Code, e.Body)
}

// GetJSON performs a GET with the given headers and returns the decoded body
// and the status code
func GetJSON(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("User-Agent", "footstats/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := ReadBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		body := string(data)
		if len(body) > 200 {
			body = body[:200]
		}
		return nil, resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: body}
	}
	return data, resp.StatusCode, nil
}

// ReadBody reads the response body, undoing any Content-Encoding
func ReadBody(resp *http.Response) ([]byte, error) {
	var reader io.ReadCloser = resp.Body
	switch enc := resp.Header.Get("Content-Encoding"); enc {
	case "gzip":
		gz, err := NewGzipReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl, _ := NewDeflateReader(resp.Body)
		defer fl.Close()
		reader = fl
	case "br":
		br, _ := NewBrotliReader(resp.Body)
		reader = br
	case "", "identity":
	default:
		logger.Warn("Unknown content encoding:", enc)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return data, nil
}

// NewGzipReader creates a gzip reader from the provided io.ReadCloser
func NewGzipReader(r io.ReadCloser) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// NewDeflateReader creates a deflate reader from the provided io.ReadCloser
func NewDeflateReader(r io.ReadCloser) (io.ReadCloser, error) {
	return flate.NewReader(r), nil
}

// NewBrotliReader creates a brotli reader from the provided io.ReadCloser
func NewBrotliReader(r io.ReadCloser) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(r)), nil
}
