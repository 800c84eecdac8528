// Package fetcher performs conditional HTTP retrieval of canvas tiles and
// caches the result to disk.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/natefinch/atomic"

	"github.com/wplace-tools/pixelwatch/internal/config"
	"github.com/wplace-tools/pixelwatch/internal/models"
	"github.com/wplace-tools/pixelwatch/internal/palette"
)

const (
	connectTimeout = 10 * time.Second
	totalTimeout   = 30 * time.Second
)

// Fetcher retrieves one tile per call, conditionally, and writes changed
// bytes to the nest's tile cache.
type Fetcher struct {
	client      *http.Client
	tileBaseURL string
	nest        config.Nest
	palette     *palette.Table
}

// New builds a Fetcher. tileBaseURL must contain {x} and {y} placeholders.
func New(nest config.Nest, tileBaseURL string, pal *palette.Table) *Fetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}
	return &Fetcher{
		client:      &http.Client{Timeout: totalTimeout, Transport: transport},
		tileBaseURL: tileBaseURL,
		nest:        nest,
		palette:     pal,
	}
}

// Outcome reports what one Check call observed, including the updated tile
// record the caller should persist.
type Outcome struct {
	Tile    models.Tile
	Changed bool
	Bytes   []byte

	// Failed is true for a non-2xx/304 response, a transport error that
	// survived the retry, or a palette violation in the response body.
	// The cycle is not fatal; Tile still carries an updated LastChecked
	// for the caller to persist.
	Failed bool
	Reason string

	// Err is the underlying error behind Failed, when there is one; the
	// Checker uses errors.As against it to tell a *palette.Violation
	// (skip and log, never fatal) apart from a transport failure (counts
	// toward consecutive cycle errors).
	Err error
}

// Check performs one conditional GET for tile and returns the outcome.
// It never returns the tile unchanged from upstream as an error — upstream
// failures are reported via Outcome.Failed so the Checker can count them
// toward consecutive cycle failures without treating them as fatal.
func (f *Fetcher) Check(ctx context.Context, tile models.Tile) (Outcome, error) {
	url, err := f.tileURL(tile.X, tile.Y)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetcher: build url for tile %d: %w", tile.ID, err)
	}

	resp, err := f.getWithRetry(ctx, url, tile)
	now := time.Now()
	if err != nil {
		return Outcome{
			Tile:   withLastChecked(tile, now),
			Failed: true,
			Reason: err.Error(),
			Err:    err,
		}, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return Outcome{Tile: withLastChecked(tile, now), Changed: false}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return f.handleOK(resp, tile, now)

	default:
		return Outcome{
			Tile:   withLastChecked(tile, now),
			Failed: true,
			Reason: fmt.Sprintf("upstream status %d", resp.StatusCode),
			Err:    fmt.Errorf("upstream status %d", resp.StatusCode),
		}, nil
	}
}

func (f *Fetcher) handleOK(resp *http.Response, tile models.Tile, now time.Time) (Outcome, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{
			Tile:   withLastChecked(tile, now),
			Failed: true,
			Reason: fmt.Sprintf("read body: %v", err),
			Err:    err,
		}, nil
	}

	decoded, err := f.palette.Decode(bytes.NewReader(body))
	if err != nil {
		return Outcome{
			Tile:   withLastChecked(tile, now),
			Failed: true,
			Reason: fmt.Sprintf("palette violation: %v", err),
			Err:    err,
		}, nil
	}
	encoded, err := f.palette.EncodeBytes(decoded)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetcher: re-encode tile %d: %w", tile.ID, err)
	}

	if err := atomic.WriteFile(f.nest.TilePath(tile.X, tile.Y), bytes.NewReader(encoded)); err != nil {
		return Outcome{}, fmt.Errorf("fetcher: write cache for tile %d: %w", tile.ID, err)
	}

	lastUpdate := now
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if parsed, err := http.ParseTime(lm); err == nil {
			lastUpdate = parsed
		}
	}

	updated := tile
	updated.LastChecked = &now
	updated.LastUpdate = &lastUpdate
	updated.ETag = resp.Header.Get("ETag")

	return Outcome{Tile: updated, Changed: true, Bytes: encoded}, nil
}

func (f *Fetcher) tileURL(x, y int) (string, error) {
	if !strings.Contains(f.tileBaseURL, "{x}") || !strings.Contains(f.tileBaseURL, "{y}") {
		return "", fmt.Errorf("tile base url %q missing {x}/{y} placeholders", f.tileBaseURL)
	}
	url := strings.ReplaceAll(f.tileBaseURL, "{x}", strconv.Itoa(x))
	url = strings.ReplaceAll(url, "{y}", strconv.Itoa(y))
	return url, nil
}

// getWithRetry performs the GET, retrying exactly once if the error looks
// like a connection reset.
func (f *Fetcher) getWithRetry(ctx context.Context, url string, tile models.Tile) (*http.Response, error) {
	resp, err := f.get(ctx, url, tile)
	if err == nil {
		return resp, nil
	}
	if !isConnectionReset(err) {
		return nil, err
	}
	return f.get(ctx, url, tile)
}

func (f *Fetcher) get(ctx context.Context, url string, tile models.Tile) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if tile.ETag != "" {
		req.Header.Set("If-None-Match", tile.ETag)
	}
	if tile.LastUpdate != nil {
		req.Header.Set("If-Modified-Since", tile.LastUpdate.UTC().Format(http.TimeFormat))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func isConnectionReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET)
}

func withLastChecked(tile models.Tile, now time.Time) models.Tile {
	tile.LastChecked = &now
	return tile
}
