package notifications

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/signalist/signalist/internal/domain"
)

const (
	// DefaultWelcomeIntro is used whenever the model gives no usable text
	DefaultWelcomeIntro = "Thanks for joining Signalist. You now have tools to track markets and make smarter moves."
	// DefaultDigestSummary is used when the model returns nothing for a digest
	DefaultDigestSummary = "No market news."
	// DefaultCountryCode keys the digest summary when a user has no country
	DefaultCountryCode = "EN"
)

const welcomePrompt = `Write a short, warm welcome paragraph for a new user of Signalist, a stock market tracking app.
Personalise it using the profile below. Mention one concrete way the app helps with their goals.
Keep it under 60 words, plain text, no greeting line and no sign-off.

User profile:
%s`

const digestPrompt = `You write the daily market news email for Signalist.
Summarise the articles below for a reader in country %s. Use Markdown: a short heading per
topic, one or two bullet points each, and a one-line takeaway at the end. Do not invent facts
or links that are not in the articles. Keep it under 250 words.

Articles (JSON):
%s`

// WelcomeProfile renders the profile block of the welcome prompt
func WelcomeProfile(country, goals, risk, industry string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Country: %s\n", country)
	fmt.Fprintf(&b, "- Investment goals: %s\n", goals)
	fmt.Fprintf(&b, "- Risk tolerance: %s\n", risk)
	fmt.Fprintf(&b, "- Preferred industry: %s\n", industry)
	return b.String()
}

// BuildWelcomePrompt returns the welcome prompt for a profile
func BuildWelcomePrompt(country, goals, risk, industry string) string {
	return fmt.Sprintf(welcomePrompt, WelcomeProfile(country, goals, risk, industry))
}

// BuildDigestPrompt returns the digest prompt for articles and a country code
func BuildDigestPrompt(articles []domain.FormattedNewsArticle, countryCode string) (string, error) {
	if strings.TrimSpace(countryCode) == "" {
		countryCode = DefaultCountryCode
	}
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode articles: %w", err)
	}
	return fmt.Sprintf(digestPrompt, countryCode, data), nil
}
