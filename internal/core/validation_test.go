package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name   string
		row    RawRow
		reason ReasonCode
	}{
		{
			name:   "valid row",
			row:    row(2, "Alice", "a@x.com", "1234567890", "Acme", "NY", "lead"),
			reason: ReasonNone,
		},
		{
			name:   "valid row without tags",
			row:    row(2, "Alice", "a@x.com", "1234567890", "Acme", "NY"),
			reason: ReasonNone,
		},
		{
			name:   "empty email is missing, not invalid",
			row:    row(2, "Alice", "", "1234567890", "Acme", "NY"),
			reason: ReasonMissingField,
		},
		{
			name:   "whitespace-only name",
			row:    row(2, "   ", "a@x.com", "1234567890", "Acme", "NY"),
			reason: ReasonMissingField,
		},
		{
			name:   "missing field wins over bad email",
			row:    row(2, "Alice", "bad-email", "1234567890", "", "NY"),
			reason: ReasonMissingField,
		},
		{
			name:   "bad email",
			row:    row(2, "Bob", "bad-email", "1234567890", "Acme", "NY"),
			reason: ReasonInvalidEmail,
		},
		{
			name:   "bad email wins over bad phone",
			row:    row(2, "Bob", "bad-email", "12345", "Acme", "NY"),
			reason: ReasonInvalidEmail,
		},
		{
			name:   "phone too short",
			row:    row(2, "Bob", "b@x.com", "123456789", "Acme", "NY"),
			reason: ReasonInvalidPhone,
		},
		{
			name:   "phone with dashes",
			row:    row(2, "Bob", "b@x.com", "123-456-7890", "Acme", "NY"),
			reason: ReasonInvalidPhone,
		},
		{
			name:   "all fields empty",
			row:    row(2),
			reason: ReasonMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ValidateRow(tt.row, "admin")
			require.Equal(t, tt.reason, out.Reason, "reason %s", out.Reason)
			require.Equal(t, tt.reason == ReasonNone, out.Valid())
		})
	}
}

func TestValidateRowNormalizes(t *testing.T) {
	out := ValidateRow(row(7, "  Alice ", " Alice@Example.COM ", " 1234567890 ", "Acme", "NY", "Lead, vip ,lead,,"), "admin")
	require.True(t, out.Valid())
	require.Equal(t, CandidateRecord{
		Name:        "Alice",
		Email:       "alice@example.com",
		Phone:       "1234567890",
		Company:     "Acme",
		Location:    "NY",
		Tags:        []string{"lead", "vip"},
		OwnerUserID: "admin",
	}, out.Record)
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@x.com", true},
		{"first.last@sub.example.org", true},
		{"under_score-dash@x-y.io", true},
		{"UPPER@EXAMPLE.COM", true},
		{"bad-email", false},
		{"a@x", false},
		{"a@x.c", false},
		{"a@x.toolongtld", false},
		{"a b@x.com", false},
		{"a..b@x.com", false},
		{"@x.com", false},
		{"a+tag@x.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			require.Equal(t, tt.want, IsValidEmail(tt.email))
		})
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", []string{}},
		{"blank", "   ", []string{}},
		{"single", "Lead", []string{"lead"}},
		{"order kept, duplicates dropped", "vip, lead ,VIP", []string{"vip", "lead"}},
		{"empty items dropped", ",a,,b,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ParseTags(tt.raw))
		})
	}
}

func TestReasonCodeString(t *testing.T) {
	require.Equal(t, "missing_field", ReasonMissingField.String())
	require.Equal(t, "invalid_format", ReasonInvalidFormat.String())
	require.Equal(t, "unknown", ReasonCode(99).String())
}
