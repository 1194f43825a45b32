package price

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Fetcher returns the raw quote page for a ticker.
type Fetcher interface {
	FetchDocument(ctx context.Context, ticker string) (string, error)
}

// FetcherConfig configures QuoteFetcher.
type FetcherConfig struct {
	BaseURL string
	Timeout time.Duration
	Retries int
}

// QuoteFetcher loads quote pages over HTTP from <BaseURL>/<ticker>.
type QuoteFetcher struct {
	client *resty.Client
}

func NewQuoteFetcher(c FetcherConfig) *QuoteFetcher {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(c.BaseURL, "/"))
	client.SetHeader("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	client.SetHeader("Accept", "text/html")
	if c.Timeout > 0 {
		client.SetTimeout(c.Timeout)
	}
	if c.Retries > 0 {
		client.SetRetryCount(c.Retries)
		client.SetRetryWaitTime(time.Second)
	}

	return &QuoteFetcher{client: client}
}

// FetchDocument returns the body of the ticker's quote page.
func (f *QuoteFetcher) FetchDocument(ctx context.Context, ticker string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		Get("/{ticker}")
	if err != nil {
		return "", errors.Wrapf(err, "could not fetch quote page for %s", ticker)
	}
	if !resp.IsSuccess() {
		return "", errors.Errorf("quote page for %s returned status %d", ticker, resp.StatusCode())
	}

	log.Debugf("fetched %d bytes for %s in %v", len(resp.Body()), ticker, resp.Time())
	return resp.String(), nil
}
