// internal/sequence/catalog.go

// Package sequence holds the static onboarding sequence previews shown after
// a lead completes the funnel. Nothing here sends anything; real delivery
// lives in the downstream automation the webhook feeds.
package sequence

import (
	"fmt"

	"lead-funnel/internal/models"
)

// EmailStep is one email in the 14-day onboarding preview.
type EmailStep struct {
	Day     int    `json:"day"`
	Title   string `json:"title"`
	Subject string `json:"subject"`
	Preview string `json:"preview"`
	Content string `json:"content"`
	CTA     string `json:"cta"`
}

// SMSStep is one SMS in the 14-day onboarding preview.
type SMSStep struct {
	Day     int    `json:"day"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Timing  string `json:"timing"`
	Length  int    `json:"length"`
}

var brandEmails = []EmailStep{
	{
		Day:     0,
		Title:   "Welcome & Strategy Guide",
		Subject: "Your Brand Partnership Strategy Guide is Ready",
		Preview: "Everything you need to launch your first UGC campaign",
		Content: "Comprehensive 24-page strategy guide covering campaign planning, creator vetting, and ROI measurement",
		CTA:     "Download Strategy Guide",
	},
	{
		Day:     1,
		Title:   "Campaign Framework Templates",
		Subject: "Ready-to-use UGC campaign templates",
		Preview: "Save 10+ hours with our proven campaign frameworks",
		Content: "6 campaign templates: Product launch, Brand awareness, Holiday campaigns, User testimonials, Unboxing videos, and Performance-driven content",
		CTA:     "Get Templates",
	},
	{
		Day:     3,
		Title:   "Creator Vetting Checklist",
		Subject: "How to spot high-converting creators in 5 minutes",
		Preview: "Our internal 47-point creator evaluation system",
		Content: "Step-by-step checklist to evaluate creator authenticity, engagement rates, audience quality, and conversion potential",
		CTA:     "View Checklist",
	},
	{
		Day:     7,
		Title:   "ROI Calculator & Tracking Setup",
		Subject: "Calculate your UGC campaign ROI in real-time",
		Preview: "Free calculator + tracking spreadsheet templates",
		Content: "Interactive ROI calculator, performance tracking templates, and KPI benchmarking against 500+ successful campaigns",
		CTA:     "Access Calculator",
	},
	{
		Day:     14,
		Title:   "Exclusive Partnership Opportunity",
		Subject: "Ready to scale? Let's talk strategy",
		Preview: "Schedule your complimentary strategy session",
		Content: "1-on-1 strategy call with our team to review your brand goals, discuss custom creator matching, and explore partnership opportunities",
		CTA:     "Book Strategy Call",
	},
}

var creatorEmails = []EmailStep{
	{
		Day:     0,
		Title:   "Creator Welcome Package",
		Subject: "Welcome to ADEYSEY MEDIA - Your toolkit awaits",
		Preview: "Everything you need to create high-converting content",
		Content: "Content creation toolkit, brand pitch templates, rate negotiation guide, and performance optimization strategies",
		CTA:     "Access Toolkit",
	},
	{
		Day:     1,
		Title:   "Application Requirements",
		Subject: "How to get approved in our ADEYSEY MEDIA network",
		Preview: "Step-by-step application guide + approval tips",
		Content: "Detailed application requirements, portfolio guidelines, performance metrics needed, and insider tips from approved creators",
		CTA:     "Start Application",
	},
	{
		Day:     3,
		Title:   "Content Performance Masterclass",
		Subject: "The 5 elements of viral UGC content",
		Preview: "Learn from our top-performing creators",
		Content: "Video masterclass covering content hooks, storytelling frameworks, call-to-action optimization, and engagement tactics that convert",
		CTA:     "Watch Masterclass",
	},
	{
		Day:     7,
		Title:   "Rate Negotiation Playbook",
		Subject: "How to 3x your rates (without losing clients)",
		Preview: "Professional negotiation strategies that work",
		Content: "Rate calculation formulas, negotiation scripts, package structuring, and value-based pricing strategies from 6-figure creators",
		CTA:     "Download Playbook",
	},
	{
		Day:     14,
		Title:   "Priority Brand Matching",
		Subject: "Exclusive brand opportunities await",
		Preview: "Get matched with premium brands in your niche",
		Content: "Complete your profile to unlock priority access to brand partnerships, exclusive campaign opportunities, and higher-paying collaborations",
		CTA:     "Complete Profile",
	},
}

var brandSMS = []SMSStep{
	{
		Day:     0,
		Title:   "Welcome SMS",
		Content: "🎯 Welcome to ADEYSEY MEDIA! Your strategy guide is ready. Check your email for the download link. Reply STOP to opt out.",
		Timing:  "Immediate",
		Length:  137,
	},
	{
		Day:     1,
		Title:   "Campaign Templates Alert",
		Content: "📋 Your campaign templates are here! 6 proven frameworks that generated $2M+ in revenue. Check your email now.",
		Timing:  "24 hours",
		Length:  115,
	},
	{
		Day:     3,
		Title:   "Creator Vetting Reminder",
		Content: "🔍 Don't miss: Your creator vetting checklist (47 evaluation points) is waiting in your inbox. Start vetting smarter.",
		Timing:  "72 hours",
		Length:  127,
	},
	{
		Day:     7,
		Title:   "ROI Calculator",
		Content: "📊 URGENT: Your ROI calculator expires in 48 hours. Calculate campaign returns instantly: [link] Reply STOP to opt out.",
		Timing:  "1 week",
		Length:  130,
	},
	{
		Day:     14,
		Title:   "Strategy Call Invite",
		Content: "📞 Ready to scale? Book your FREE strategy call today. Limited slots available this week: [link]",
		Timing:  "2 weeks",
		Length:  104,
	},
}

var creatorSMS = []SMSStep{
	{
		Day:     0,
		Title:   "Welcome SMS",
		Content: "🚀 Welcome to ADEYSEY MEDIA! Your content toolkit is ready. Check your email to download. Reply STOP to opt out.",
		Timing:  "Immediate",
		Length:  125,
	},
	{
		Day:     1,
		Title:   "Application Guide",
		Content: "✅ Application tips in your inbox! Get insider secrets for network approval. Check email now for higher success rates.",
		Timing:  "24 hours",
		Length:  120,
	},
	{
		Day:     3,
		Title:   "Masterclass Alert",
		Content: "🎬 LIVE: Content Performance Masterclass starts in 2 hours. Learn the 5 elements of viral UGC: adeyseymedia.com/live",
		Timing:  "72 hours",
		Length:  113,
	},
	{
		Day:     7,
		Title:   "Rate Negotiation Guide",
		Content: "💰 3x your rates without losing clients! Your negotiation playbook is ready. Download from email before it expires.",
		Timing:  "1 week",
		Length:  119,
	},
	{
		Day:     14,
		Title:   "Brand Matching Alert",
		Content: "🎯 EXCLUSIVE: Premium brand opportunities closing soon. Complete your profile in 24hrs for priority access.",
		Timing:  "2 weeks",
		Length:  114,
	},
}

// EmailSequence returns the email preview for a segment.
func EmailSequence(userType models.UserType) ([]EmailStep, error) {
	switch userType {
	case models.UserTypeBrand:
		return brandEmails, nil
	case models.UserTypeCreator:
		return creatorEmails, nil
	default:
		return nil, fmt.Errorf("unknown user type %q", userType)
	}
}

// SMSSequence returns the SMS preview for a segment. SMS previews are only
// shown when the lead provided a phone number; that gating belongs to the
// caller.
func SMSSequence(userType models.UserType) ([]SMSStep, error) {
	switch userType {
	case models.UserTypeBrand:
		return brandSMS, nil
	case models.UserTypeCreator:
		return creatorSMS, nil
	default:
		return nil, fmt.Errorf("unknown user type %q", userType)
	}
}

// Summary describes one segment's sequence at a glance.
type Summary struct {
	UserType   models.UserType `json:"userType"`
	EmailSteps int             `json:"emailSteps"`
	SMSSteps   int             `json:"smsSteps"`
	SpanDays   int             `json:"spanDays"`
}

// Summarize builds the dashboard summary for a segment.
func Summarize(userType models.UserType) (Summary, error) {
	emails, err := EmailSequence(userType)
	if err != nil {
		return Summary{}, err
	}
	sms, _ := SMSSequence(userType)

	span := 0
	for _, e := range emails {
		if e.Day > span {
			span = e.Day
		}
	}
	return Summary{
		UserType:   userType,
		EmailSteps: len(emails),
		SMSSteps:   len(sms),
		SpanDays:   span,
	}, nil
}
