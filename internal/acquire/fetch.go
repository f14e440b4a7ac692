package acquire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Fetcher obtains the receipt document for an already-acquired permit, given
// the plate it was issued for. The slow UI-driven search and the fast direct
// request are interchangeable implementations of this one capability.
type Fetcher interface {
	FetchReceipt(ctx context.Context, plate string) (string, error)
}

// DirectFetcher requests the receipt from the permit lookup endpoint and
// saves it into the download directory. This skips the browser entirely.
type DirectFetcher struct {
	client      *http.Client
	lookupURL   string
	downloadDir string
	log         *slog.Logger
}

// NewDirectFetcher builds the fast-path fetcher.
func NewDirectFetcher(lookupURL, downloadDir string, log *slog.Logger) *DirectFetcher {
	return &DirectFetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		lookupURL:   lookupURL,
		downloadDir: downloadDir,
		log:         log,
	}
}

// FetchReceipt downloads the receipt PDF for plate.
func (f *DirectFetcher) FetchReceipt(ctx context.Context, plate string) (string, error) {
	if f.lookupURL == "" {
		return "", fmt.Errorf("no lookup endpoint configured")
	}

	u, err := url.Parse(f.lookupURL)
	if err != nil {
		return "", fmt.Errorf("invalid lookup URL: %w", err)
	}
	q := u.Query()
	q.Set("plate", plate)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("receipt lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("no receipt found for plate %s", plate)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("receipt lookup returned %s", resp.Status)
	}

	dest := filepath.Join(f.downloadDir,
		fmt.Sprintf("Parking Permit Receipt %s %s.pdf", plate, time.Now().Format("20060102-150405")))

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("cannot create receipt file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("cannot save receipt: %w", err)
	}

	f.log.Info("receipt fetched directly", "plate", plate, "path", dest)
	return dest, nil
}

// fallbackFetcher tries the fast path first and falls back to the slow one
// when it is unavailable or fails.
type fallbackFetcher struct {
	fast, slow Fetcher
	log        *slog.Logger
}

// WithFallback combines two fetchers, preferring fast.
func WithFallback(fast, slow Fetcher, log *slog.Logger) Fetcher {
	return &fallbackFetcher{fast: fast, slow: slow, log: log}
}

func (f *fallbackFetcher) FetchReceipt(ctx context.Context, plate string) (string, error) {
	path, err := f.fast.FetchReceipt(ctx, plate)
	if err == nil {
		return path, nil
	}
	f.log.Warn("fast receipt fetch failed, falling back", "error", err)
	return f.slow.FetchReceipt(ctx, plate)
}
