// internal/sequence/catalog_test.go
package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-funnel/internal/models"
)

func TestEmailSequence_PerSegment(t *testing.T) {
	brand, err := EmailSequence(models.UserTypeBrand)
	require.NoError(t, err)
	require.Len(t, brand, 5)
	assert.Equal(t, "Welcome & Strategy Guide", brand[0].Title)
	assert.Equal(t, "Your Brand Partnership Strategy Guide is Ready", brand[0].Subject)

	creator, err := EmailSequence(models.UserTypeCreator)
	require.NoError(t, err)
	require.Len(t, creator, 5)
	assert.Equal(t, "Creator Welcome Package", creator[0].Title)
	assert.Equal(t, "Welcome to ADEYSEY MEDIA - Your toolkit awaits", creator[0].Subject)
}

func TestEmailSequence_Cadence(t *testing.T) {
	for _, userType := range []models.UserType{models.UserTypeBrand, models.UserTypeCreator} {
		steps, err := EmailSequence(userType)
		require.NoError(t, err)

		days := make([]int, len(steps))
		for i, s := range steps {
			days[i] = s.Day
			assert.NotEmpty(t, s.Subject)
			assert.NotEmpty(t, s.Content)
			assert.NotEmpty(t, s.CTA)
		}
		assert.Equal(t, []int{0, 1, 3, 7, 14}, days)
	}
}

func TestSMSSequence_PerSegment(t *testing.T) {
	for _, userType := range []models.UserType{models.UserTypeBrand, models.UserTypeCreator} {
		steps, err := SMSSequence(userType)
		require.NoError(t, err)
		require.Len(t, steps, 5)

		for _, s := range steps {
			assert.NotEmpty(t, s.Content)
			assert.NotEmpty(t, s.Timing)
			assert.LessOrEqual(t, s.Length, 160, "SMS %q exceeds one segment", s.Title)
		}
		assert.Equal(t, "Immediate", steps[0].Timing)
	}
}

func TestSequences_UnknownUserType(t *testing.T) {
	_, err := EmailSequence("agency")
	assert.Error(t, err)
	_, err = SMSSequence("")
	assert.Error(t, err)
	_, err = Summarize("agency")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	summary, err := Summarize(models.UserTypeCreator)
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeCreator, summary.UserType)
	assert.Equal(t, 5, summary.EmailSteps)
	assert.Equal(t, 5, summary.SMSSteps)
	assert.Equal(t, 14, summary.SpanDays)
}
