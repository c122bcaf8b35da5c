package core

// validation.go classifies one parsed row before it is considered for insertion.
//
// Rules run in a fixed order and the first failure wins:
//  1. name, email, phone, company, location must be non-empty after trimming
//  2. email must match emailRegex
//  3. phone must be exactly ten digits
//
// Tags are optional. They are split on commas, trimmed, lower-cased and
// de-duplicated.

import (
	"regexp"
	"strings"
)

// ReasonCode says why a row was rejected.
type ReasonCode int

const (
	ReasonNone ReasonCode = iota
	ReasonMissingField
	ReasonInvalidEmail
	ReasonInvalidPhone
	ReasonInvalidFormat
	numReasons
)

var reasonNames = [numReasons]string{
	ReasonNone:          "none",
	ReasonMissingField:  "missing_field",
	ReasonInvalidEmail:  "invalid_email",
	ReasonInvalidPhone:  "invalid_phone",
	ReasonInvalidFormat: "invalid_format",
}

func (c ReasonCode) String() string {
	if c < 0 || c >= numReasons {
		return "unknown"
	}
	return reasonNames[c]
}

var (
	emailRegex = regexp.MustCompile(`^[\w-]+(\.[\w-]+)*@([\w-]+\.)+[a-zA-Z]{2,7}$`)
	phoneRegex = regexp.MustCompile(`^[0-9]{10}$`)
)

// ValidationOutcome is either a valid record (Reason == ReasonNone) or a
// rejection reason.
type ValidationOutcome struct {
	Record CandidateRecord
	Reason ReasonCode
}

// Valid reports whether the row passed every rule.
func (o ValidationOutcome) Valid() bool { return o.Reason == ReasonNone }

// ValidateRow checks one row and normalizes it into a CandidateRecord.
func ValidateRow(row RawRow, ownerUserID string) ValidationOutcome {
	var values [numColumns]string
	for col := range values {
		values[col] = strings.TrimSpace(row.Field(col))
	}

	for _, col := range requiredColumns {
		if values[col] == "" {
			return ValidationOutcome{Reason: ReasonMissingField}
		}
	}
	if !IsValidEmail(values[ColEmail]) {
		return ValidationOutcome{Reason: ReasonInvalidEmail}
	}
	if !IsValidPhone(values[ColPhone]) {
		return ValidationOutcome{Reason: ReasonInvalidPhone}
	}

	return ValidationOutcome{Record: CandidateRecord{
		Name:        values[ColName],
		Email:       NormalizeEmail(values[ColEmail]),
		Phone:       values[ColPhone],
		Company:     values[ColCompany],
		Location:    values[ColLocation],
		Tags:        ParseTags(values[ColTags]),
		OwnerUserID: ownerUserID,
	}}
}

// IsValidEmail checks local-part, '@', dot-separated labels and a 2-7 letter TLD.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsValidPhone checks for exactly ten digits.
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// NormalizeEmail is the key used for duplicate detection and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseTags splits a comma-separated tag list. An empty field yields no tags.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		tag := strings.ToLower(strings.TrimSpace(p))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
