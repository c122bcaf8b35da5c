package core

// error_messages.go turns structural ingestion errors into user-facing
// messages with a short code support staff can look up.
//
// Codes by category:
//
//	AUTH001  caller not authenticated          (ErrUnauthorized)
//	AUTH002  caller is not an administrator    (ErrForbidden)
//	FILE001  upload exceeds the size limit     ("request body too large")
//	FILE002  file is not valid CSV             (ErrParse)
//	FILE004  no file in the request            (ErrNoFile)
//	FILE005  file has no header line           ("empty file")
//	VAL004   header lacks a required column    ("missing required columns")
//	DB004    database refused the connection   ("connection refused")
//	DB006    database call timed out           ("timeout", deadline exceeded)
//	DB008    database unavailable              (ErrStoreUnavailable)
//	UPL001   client went away mid-upload       (ErrAborted)
//	UPL002   all ingestion slots busy          (ErrTooManyUploads)
//	RATE001  request rate exceeded             ("rate limit")
//	ERR000   anything else; check the logs
//
// Sentinels are matched with errors.Is first. The text patterns only cover
// causes that reach us as plain strings from the driver or net/http.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

// Order matters: the more specific file errors wrap ErrParse, and store
// timeouts wrap both ErrStoreUnavailable and context.DeadlineExceeded.
var sentinelMessages = []sentinelMessage{
	{ErrUnauthorized, UserMessage{
		Message: "You are not signed in",
		Action:  "Sign in and try again",
		Code:    "AUTH001",
	}},
	{ErrForbidden, UserMessage{
		Message: "Only administrators can import customers",
		Action:  "Ask an administrator to run the import",
		Code:    "AUTH002",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}},
	{ErrTooManyUploads, UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
	{ErrAborted, UserMessage{
		Message: "Upload was cancelled",
		Action:  "Start a new upload when ready",
		Code:    "UPL001",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively with strings.Contains; the
// first match wins.
var errorPatterns = []errorPattern{
	{"request body too large", UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{"empty file", UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header line",
		Code:    "FILE005",
	}},
	{"missing required columns", UserMessage{
		Message: "Required column is missing from CSV",
		Action:  "The header must name: name, email, phone, company, location",
		Code:    "VAL004",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try uploading a smaller file or try again later",
		Code:    "DB006",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

var (
	parseMessage = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure file is comma-separated with consistent columns",
		Code:    "FILE002",
	}
	storeMessage = UserMessage{
		Message: "The database is unavailable",
		Action:  "Please try again in a few moments",
		Code:    "DB008",
	}
	storeTimeoutMessage = UserMessage{
		Message: "Operation timed out",
		Action:  "Try uploading a smaller file or try again later",
		Code:    "DB006",
	}
)

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. A nil
// error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	switch {
	case errors.Is(err, ErrParse):
		return parseMessage
	case errors.Is(err, ErrStoreUnavailable) && errors.Is(err, context.DeadlineExceeded):
		return storeTimeoutMessage
	case errors.Is(err, ErrStoreUnavailable):
		return storeMessage
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
