package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/edgar-llm/internal/model"
)

// secHosts are the regulator hosts sharing the published fair-access rate.
var secHosts = []string{"www.sec.gov", "efts.sec.gov", "data.sec.gov"}

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent     string
	RateLimit     float64
	Burst         int
	Timeout       time.Duration
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffFactor float64
	BackoffJitter float64
}

// HTTPFetcher implements Fetcher using net/http with retry and rate limiting.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
	fallback *rate.Limiter
}

// ValidateUserAgent checks the SEC fair-access requirement that the declared
// User-Agent identifies the requester with a contact email address.
func ValidateUserAgent(ua string) error {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return eris.New("fetcher: user agent is required")
	}
	for _, field := range strings.Fields(ua) {
		if !strings.Contains(field, "@") {
			continue
		}
		if _, err := mail.ParseAddress(field); err == nil {
			return nil
		}
	}
	return eris.Errorf("fetcher: user agent %q must include a contact email", ua)
}

// NewHTTPFetcher creates a rate-limited HTTP fetcher. The user agent must
// carry a contact email.
func NewHTTPFetcher(opts HTTPOptions) (*HTTPFetcher, error) {
	if err := ValidateUserAgent(opts.UserAgent); err != nil {
		return nil, err
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BackoffFactor <= 0 {
		opts.BackoffFactor = 2.0
	}
	if opts.BackoffJitter <= 0 {
		opts.BackoffJitter = 0.2
	}

	limiters := make(map[string]*rate.Limiter, len(secHosts))
	for _, host := range secHosts {
		limiters[host] = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst)
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: limiters,
		fallback: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
	}, nil
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return f.fallback
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return f.fallback
}

// Get fetches the URL, retrying 5xx, 429 and transport failures with
// exponential backoff. Any other 4xx fails immediately as permanent.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	var lastErr error
	var lastStatus int
	for attempt := range f.opts.MaxRetries {
		lim := f.limiterFor(rawURL)
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		cloned := req.Clone(ctx)
		resp, err := f.client.Do(cloned)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "fetcher: canceled")
			}
			lastErr = err
			zap.L().Warn("http request failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			f.backoff(ctx, attempt, 0)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				lastErr = err
				lastStatus = resp.StatusCode
				f.backoff(ctx, attempt, 0)
				continue
			}
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http 429 from %s", rawURL)
			lastStatus = resp.StatusCode
			zap.L().Warn("rate limited (429), backing off",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Duration("retry_after", retryAfter),
			)
			f.backoff(ctx, attempt, retryAfter)
			continue

		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
			lastStatus = resp.StatusCode
			zap.L().Warn("server error, retrying",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			f.backoff(ctx, attempt, 0)
			continue

		default:
			_ = resp.Body.Close()
			return nil, &model.PermanentFetchError{URL: rawURL, StatusCode: resp.StatusCode}
		}
	}

	return nil, &model.TransientFetchError{
		URL:        rawURL,
		StatusCode: lastStatus,
		Attempts:   f.opts.MaxRetries,
		Err:        lastErr,
	}
}

// backoff sleeps base*factor^attempt with proportional jitter, or the server's
// Retry-After when it is longer.
func (f *HTTPFetcher) backoff(ctx context.Context, attempt int, retryAfter time.Duration) {
	d := time.Duration(float64(f.opts.BackoffBase) * math.Pow(f.opts.BackoffFactor, float64(attempt)))
	if max := 30 * time.Second; d > max {
		d = max
	}
	jitter := (rand.Float64()*2 - 1) * f.opts.BackoffJitter
	d = time.Duration(float64(d) * (1 + jitter))
	if retryAfter > d {
		d = retryAfter
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
