package out

import "context"

// PrivacyScraper looks up a privacy contact (DPO) email for a website.
type PrivacyScraper interface {
	// FindContactEmail fetches the site's privacy pages and returns the
	// contact address, or empty string when none could be found.
	FindContactEmail(ctx context.Context, websiteURL string) (string, error)
}
