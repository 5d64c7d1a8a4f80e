package mudradesk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// gstinPattern is the published GSTIN layout: state code, PAN, entity
// number, the literal Z, and a check character. Checksum math is the
// verifier's job, not ours.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// GSTResult is the verifier verdict. Error carries the human-readable
// rejection reason when Valid is false.
type GSTResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// GSTVerifier checks tax numbers with an external authority.
type GSTVerifier interface {
	Verify(ctx context.Context, gstin string) (GSTResult, error)
}

// GSTVerifierFunc adapts a function to the GSTVerifier interface.
type GSTVerifierFunc func(ctx context.Context, gstin string) (GSTResult, error)

func (f GSTVerifierFunc) Verify(ctx context.Context, gstin string) (GSTResult, error) {
	return f(ctx, gstin)
}

// HTTPGSTVerifier calls a GST verification API. Without a configured
// base URL it degrades to format-only validation so development setups
// work offline.
type HTTPGSTVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  Logger
}

type GSTVerifierOption func(*HTTPGSTVerifier)

func WithGSTHTTPClient(client *http.Client) GSTVerifierOption {
	return func(v *HTTPGSTVerifier) {
		if client != nil {
			v.client = client
		}
	}
}

func WithGSTLogger(logger Logger) GSTVerifierOption {
	return func(v *HTTPGSTVerifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func NewHTTPGSTVerifier(baseURL, apiKey string, opts ...GSTVerifierOption) *HTTPGSTVerifier {
	v := &HTTPGSTVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	return v
}

func (v *HTTPGSTVerifier) Verify(ctx context.Context, gstin string) (GSTResult, error) {
	gstin = strings.ToUpper(strings.TrimSpace(gstin))

	if !gstinPattern.MatchString(gstin) {
		return GSTResult{Valid: false, Error: "Invalid GST number format"}, nil
	}

	if v.baseURL == "" {
		return GSTResult{Valid: true}, nil
	}

	endpoint := fmt.Sprintf("%s/%s", v.baseURL, url.PathEscape(gstin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return GSTResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build GST verification request")
	}

	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error("GST verification request failed", "error", err)
		return GSTResult{}, goerrors.Wrap(err, goerrors.CategoryOperation, "GST verification service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Warn("GST verification returned status %d", resp.StatusCode)
		return GSTResult{Valid: false, Error: fmt.Sprintf("verification service returned %d", resp.StatusCode)}, nil
	}

	var result GSTResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return GSTResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode GST verification response")
	}

	return result, nil
}
