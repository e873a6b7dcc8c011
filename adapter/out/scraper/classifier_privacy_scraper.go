// Package scraper implements the privacy contact lookup against a
// business website.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"classifier_server/pkg/cache"
	"classifier_server/pkg/logger"
)

// privacyPaths are tried in order against the site root. The empty path is
// the landing page itself, tried last.
var privacyPaths = []string{
	"/privacy",
	"/privacy-policy",
	"/privacy_policy",
	"/privacypolicy",
	"/legal/privacy",
	"/terms/privacy",
	"/policy/privacy",
	"/privacy.html",
	"/privacy.php",
	"",
}

// Addresses near these markers are preferred before asking the extractor.
var dpoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:dpo|privacy|dataprotection|data-protection|datenschutz)[a-zA-Z0-9._%+-]*@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	regexp.MustCompile(`(?i)(?:data protection officer|privacy officer|dpo)[^@]{0,80}?([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
}

const maxPageBytes = 512 * 1024

// ContactExtractor answers with a contact address found in page text, or
// empty string. Satisfied by the classification chain's DPO extraction.
type ContactExtractor interface {
	ExtractDPOEmail(ctx context.Context, pageText string) string
}

// cachedLookup is the cache payload. Negative lookups are cached too so a
// site without a privacy page is not re-scraped on every email.
type cachedLookup struct {
	Email string `json:"email"`
}

// PrivacyScraper fetches privacy pages and finds a DPO contact address.
type PrivacyScraper struct {
	client    *http.Client
	extractor ContactExtractor
	cache     *cache.RedisCache
	cacheTTL  time.Duration
	breaker   *gobreaker.CircuitBreaker
	log       *logger.Logger
}

// NewPrivacyScraper creates a scraper. The cache may be nil.
func NewPrivacyScraper(client *http.Client, extractor ContactExtractor, redisCache *cache.RedisCache, cacheTTL time.Duration, log *logger.Logger) *PrivacyScraper {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "privacy-scraper",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}

	return &PrivacyScraper{
		client:    client,
		extractor: extractor,
		cache:     redisCache,
		cacheTTL:  cacheTTL,
		breaker:   breaker,
		log:       log.WithField("component", "scraper"),
	}
}

// FindContactEmail returns the privacy contact address for a website, or
// empty string when none could be found.
func (s *PrivacyScraper) FindContactEmail(ctx context.Context, websiteURL string) (string, error) {
	base, err := siteRoot(websiteURL)
	if err != nil {
		return "", fmt.Errorf("invalid website url: %w", err)
	}

	cacheKey := "scrape:dpo:" + base
	if s.cache != nil {
		var cached cachedLookup
		if found, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && found {
			return cached.Email, nil
		}
	}

	email := s.scrape(ctx, base)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, cachedLookup{Email: email}, s.cacheTTL); err != nil {
			s.log.WithError(err).Debug("scrape cache write failed")
		}
	}

	return email, nil
}

func (s *PrivacyScraper) scrape(ctx context.Context, base string) string {
	for _, path := range privacyPaths {
		pageText, err := s.fetch(ctx, base+path)
		if err != nil {
			continue
		}

		for _, re := range dpoPatterns {
			match := re.FindStringSubmatch(pageText)
			if len(match) == 0 {
				continue
			}
			// Patterns with a capture group carry the address there.
			if len(match) > 1 && match[1] != "" {
				return strings.ToLower(match[1])
			}
			return strings.ToLower(match[0])
		}

		if s.extractor != nil {
			if email := s.extractor.ExtractDPOEmail(ctx, pageText); email != "" {
				return email
			}
		}
	}
	return ""
}

type pageFetch struct {
	status int
	body   string
}

// fetch loads one page. Only transport failures count against the breaker;
// a missing page is a normal answer from a healthy site.
func (s *PrivacyScraper) fetch(ctx context.Context, pageURL string) (string, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "classifier-bot/1.0")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return pageFetch{status: resp.StatusCode}, nil
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		if err != nil {
			return nil, err
		}
		return pageFetch{status: resp.StatusCode, body: string(data)}, nil
	})
	if err != nil {
		return "", err
	}

	page := result.(pageFetch)
	if page.status != http.StatusOK {
		return "", fmt.Errorf("status %d", page.status)
	}
	return page.body, nil
}

// siteRoot normalizes a URL down to scheme://host.
func siteRoot(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}
