// Package traportal fetches receipt verification pages from the TRA portal.
// URL-type submissions carry a portal link whose six trailing digits encode
// the receipt time; verifying a receipt is an initial visit followed by a
// time-parameterized verification call on the same session.
package traportal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/risiti/risiti-backend/logger"
)

const verifyPath = "/Verify/Verified"

// ErrReceiptNotReady means the portal answered but the receipt is not yet
// published on its side. Callers treat this as retryable.
var ErrReceiptNotReady = errors.New("receipt not yet available on portal")

// timeTokenPattern matches the mandatory six-digit HHMMSS suffix of a portal
// receipt URL.
var timeTokenPattern = regexp.MustCompile(`(\d{2})(\d{2})(\d{2})\s*$`)

// notReadyMarkers are body fragments the portal serves while a receipt is
// still propagating.
var notReadyMarkers = []string{
	"not yet available",
	"receipt could not be found",
	"TIN not found",
}

// ClientInterface defines the portal operations the fetcher depends on.
type ClientInterface interface {
	FetchReceipt(ctx context.Context, receiptURL, timeToken string) (string, error)
}

type Client struct {
	httpClient *http.Client
}

// NewClient creates a portal client with the given per-call timeout. A cookie
// jar is required: the verification call only succeeds on the session opened
// by the initial visit.
func NewClient(timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// ExtractTimeToken pulls the HH:MM:SS token out of a portal receipt URL.
// A URL without the six-digit suffix can never verify, so the error is
// permanent rather than retryable.
func ExtractTimeToken(receiptURL string) (string, error) {
	m := timeTokenPattern.FindStringSubmatch(strings.TrimSpace(receiptURL))
	if m == nil {
		return "", fmt.Errorf("receipt URL %q has no trailing HHMMSS time token", receiptURL)
	}
	return fmt.Sprintf("%s:%s:%s", m[1], m[2], m[3]), nil
}

// FetchReceipt performs the two chained portal calls and returns the cleaned
// receipt text. Transport errors, non-success statuses, and a "not yet
// available" body all come back as errors; only the latter is
// ErrReceiptNotReady.
func (c *Client) FetchReceipt(ctx context.Context, receiptURL, timeToken string) (string, error) {
	log := logger.GetLogger()

	log.Debugw("Visiting portal receipt page", "url", receiptURL)
	if err := c.visit(ctx, receiptURL); err != nil {
		return "", err
	}

	base, err := url.Parse(receiptURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse receipt URL: %w", err)
	}
	verifyURL := fmt.Sprintf("%s://%s%s", base.Scheme, base.Host, verifyPath)

	form := url.Values{}
	form.Set("RctTime", timeToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Debugw("Executing portal verification call", "url", verifyURL, "time", timeToken)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("portal verification call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("portal verification returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read portal response: %w", err)
	}

	page := string(body)
	for _, marker := range notReadyMarkers {
		if strings.Contains(strings.ToLower(page), strings.ToLower(marker)) {
			return "", ErrReceiptNotReady
		}
	}

	text := CleanReceiptText(page)
	if strings.TrimSpace(text) == "" {
		return "", ErrReceiptNotReady
	}
	return text, nil
}

func (c *Client) visit(ctx context.Context, receiptURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, receiptURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create visit request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("portal visit failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("portal visit returned status %d", resp.StatusCode)
	}
	return nil
}
