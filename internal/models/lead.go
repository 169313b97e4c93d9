// internal/models/lead.go
package models

// UserType segments a lead into the two funnel paths.
type UserType string

const (
	UserTypeBrand   UserType = "brand"
	UserTypeCreator UserType = "creator"
)

// Valid reports whether the value is one of the two known segments.
func (u UserType) Valid() bool {
	return u == UserTypeBrand || u == UserTypeCreator
}

// PlatformDetail holds the per-platform profile a creator fills in.
type PlatformDetail struct {
	Username      string `json:"username"`
	FollowerCount string `json:"followerCount"`
}

// LeadRecord is the submission payload synthesized at the terminal step of a
// capture session. Created once, immutable after creation, handed to the
// delivery collaborator exactly once. Timestamps are epoch milliseconds and
// TimeOnPage is milliseconds, matching the webhook consumers.
type LeadRecord struct {
	Email           string                    `json:"email"`
	Phone           string                    `json:"phone,omitempty"`
	UserType        UserType                  `json:"userType"`
	Name            string                    `json:"name,omitempty"`
	Platforms       []string                  `json:"platforms,omitempty"`
	PlatformDetails map[string]PlatformDetail `json:"platformDetails,omitempty"`
	ReferralSource  string                    `json:"referralSource,omitempty"`

	HeadlineVariant string `json:"headlineVariant,omitempty"`
	TimeOnPage      int64  `json:"timeOnPage,omitempty"`
	FormStartTime   int64  `json:"formStartTime,omitempty"`
	CompletionTime  int64  `json:"completionTime,omitempty"`
}
