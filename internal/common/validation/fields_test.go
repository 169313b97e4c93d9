// internal/common/validation/fields_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantMsg string
	}{
		{name: "valid plain address", email: "jane@example.com", wantMsg: ""},
		{name: "valid with plus tag", email: "jane+tag@example.co.uk", wantMsg: ""},
		{name: "empty", email: "", wantMsg: "Email is required"},
		{name: "missing at sign", email: "jane.example.com", wantMsg: "Please enter a valid email address"},
		{name: "missing tld", email: "jane@example", wantMsg: "Please enter a valid email address"},
		{name: "contains space", email: "ja ne@example.com", wantMsg: "Please enter a valid email address"},
		{name: "double at sign", email: "jane@@example.com", wantMsg: "Please enter a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, ValidateEmail(tt.email))
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantMsg string
	}{
		{name: "empty is optional", phone: "", wantMsg: ""},
		{name: "plain digits", phone: "12345678901", wantMsg: ""},
		{name: "with plus prefix", phone: "+14155550123", wantMsg: ""},
		{name: "formatted us number", phone: "(415) 555-0123", wantMsg: ""},
		{name: "dashes stripped", phone: "1-415-555-0123", wantMsg: ""},
		{name: "too short", phone: "555-0123", wantMsg: "Phone number must be at least 10 digits"},
		{name: "leading zero", phone: "0415555012345", wantMsg: "Please enter a valid phone number"},
		{name: "letters", phone: "41555501abcd", wantMsg: "Please enter a valid phone number"},
		{name: "too long", phone: "+123456789012345678", wantMsg: "Please enter a valid phone number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, ValidatePhone(tt.phone))
		})
	}
}

func TestCleanPhone(t *testing.T) {
	assert.Equal(t, "+14155550123", CleanPhone("+1 (415) 555-0123"))
	assert.Equal(t, "12345", CleanPhone("1 2-3(4)5"))
}

func TestValidateName(t *testing.T) {
	assert.Equal(t, "", ValidateName("Jane Doe"))
	assert.Equal(t, "Name is required", ValidateName(""))
	assert.Equal(t, "Name is required", ValidateName("   "))
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "example.com", EmailDomain("jane@example.com"))
	assert.Equal(t, "", EmailDomain("no-at-sign"))
	assert.Equal(t, "", EmailDomain("trailing@"))
}
