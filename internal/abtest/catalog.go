// internal/abtest/catalog.go
package abtest

// HeadlineVariant is one candidate headline pair shown to a slice of
// visitors. The catalog is fixed at process start and never mutated.
type HeadlineVariant struct {
	ID        string `json:"id"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Weight    int    `json:"weight"`
}

// DefaultCatalog carries the four headline variants from the landing page,
// equal weights.
func DefaultCatalog() []HeadlineVariant {
	return []HeadlineVariant{
		{
			ID:        "original",
			Primary:   "Where Creators Drive Growth.",
			Secondary: "Where Brands Scale Faster.",
			Weight:    25,
		},
		{
			ID:        "performance-focused",
			Primary:   "Performance-Driven Results.",
			Secondary: "Creator-Powered Growth.",
			Weight:    25,
		},
		{
			ID:        "roi-focused",
			Primary:   "Measurable ROI. Proven Creators.",
			Secondary: "Campaigns That Convert.",
			Weight:    25,
		},
		{
			ID:        "speed-focused",
			Primary:   "Launch in 48 Hours.",
			Secondary: "Scale with Vetted Creators.",
			Weight:    25,
		},
	}
}

// ConversionEvent names the funnel milestones attributed back to a variant.
type ConversionEvent string

const (
	ConversionEmailSubmit    ConversionEvent = "email_submit"
	ConversionPhoneSubmit    ConversionEvent = "phone_submit"
	ConversionSegmentSelect  ConversionEvent = "segment_select"
	ConversionOnboardingView ConversionEvent = "onboarding_view"
)
