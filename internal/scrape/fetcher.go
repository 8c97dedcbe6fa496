package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/threadloom/internal/retry"
)

// Fetcher performs rate-limited HTTP GETs against the source platform
// and parses responses into traversable documents. Transient network
// failures are retried up to the fetch budget; once that is exhausted
// the underlying error propagates to the caller unmodified. Responses
// are never cached.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	retryCfg retry.Config
	log      zerolog.Logger
}

// NewFetcher creates a fetcher with the given per-request timeout and
// outbound request rate.
func NewFetcher(timeout time.Duration, perSecond float64, logger zerolog.Logger) *Fetcher {
	if perSecond <= 0 {
		perSecond = 2
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		retryCfg: retry.FetchConfig(),
		log:      logger,
	}
}

// Fetch retrieves pageURL and parses the body into a document
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document
	result := retry.WithBackoff(ctx, f.retryCfg, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		d, err := f.fetchOnce(ctx, pageURL)
		if err != nil {
			return err
		}
		doc = d
		return nil
	}, f.log)

	if !result.Success {
		return nil, result.LastError
	}
	f.log.Debug().Str("url", pageURL).Int("attempts", result.Attempts).Msg("page fetched")
	return doc, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// no URL in the message: retry classification matches on status
		// text and must not trip over digits in the path or port
		return nil, fmt.Errorf("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document from %s: %w", pageURL, err)
	}
	return doc, nil
}
