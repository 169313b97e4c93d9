// internal/funnel/catalog.go
package funnel

// Platform is one of the creator platforms offered at the platforms step.
type Platform struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Platforms is the fixed catalog shown to creators.
var Platforms = []Platform{
	{ID: "tiktok", Label: "TikTok"},
	{ID: "instagram", Label: "Instagram"},
	{ID: "youtube", Label: "YouTube"},
	{ID: "snapchat", Label: "Snapchat"},
	{ID: "twitter", Label: "Twitter/X"},
	{ID: "linkedin", Label: "LinkedIn"},
	{ID: "other", Label: "Other"},
}

// KnownPlatform reports whether the id is in the catalog.
func KnownPlatform(id string) bool {
	for _, p := range Platforms {
		if p.ID == id {
			return true
		}
	}
	return false
}

// ReferralSources are the options offered at the creator details step.
var ReferralSources = []string{
	"Google Search",
	"Social Media",
	"Friend/Colleague Referral",
	"Industry Event",
	"Email Newsletter",
	"Podcast",
	"Blog/Article",
	"Other",
}

// FollowerRanges are the follower-count buckets a creator picks from.
var FollowerRanges = []string{
	"1K - 10K (Nano-influencer)",
	"10K - 100K (Micro-influencer)",
	"100K - 1M (Macro-influencer)",
	"1M+ (Mega-influencer)",
	"Less than 1K",
}
