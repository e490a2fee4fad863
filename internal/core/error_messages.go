package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Sellers can quote the code to support staff for faster
// diagnosis.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: The file exceeds the upload size limit
//	          Action: Split the file into smaller files
//	FILE002 - Invalid type: Only .csv files can be uploaded
//	          Action: Export your sheet as CSV and try again
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV file to upload
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Please upload a CSV file with data rows
//	FILE006 - Header not recognised: No known product columns in the first row
//	          Action: Download the template and copy its header row
//	FILE007 - No data rows: The file has a header but no products
//	          Action: Add at least one product below the header
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - No valid products: Every row has validation errors
//	         Action: Fix the rows listed in the preview and upload again
//	VAL002 - Invalid number: A numeric column contains text
//	         Action: Remove units and use plain numbers
//	VAL003 - Required field: A required column is empty
//	         Action: Fill in name, description, price, category, stock and image
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - Upload timed out: The marketplace did not answer in time
//	         Action: Try again, or split the file so it uploads in batches
//	UPL002 - System busy: Too many uploads in progress
//	         Action: Please wait a moment and try again
//	UPL003 - Session expired: Upload session not found
//	         Action: Start a new upload
//	UPL004 - Wrong step: The session is not ready for this action
//	         Action: Select a file and preview it before uploading
//	UPL005 - Request cancelled: The request was cancelled
//	         Action: Please try again
//	UPL006 - Already uploading: An upload for this session is running
//	         Action: Wait for it to finish
//
// # Marketplace Errors (NET001-NET099)
//
//	NET001 - Unreachable: Unable to reach the marketplace
//	NET002 - Rejected: The marketplace rejected the request
//	NET003 - Timeout: The marketplace request timed out
//
// # Identity Errors (AUTH001-AUTH099)
//
//	AUTH001 - Not signed in: The seller could not be identified
//	AUTH002 - Forbidden: The seller may not perform this action
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check application
// logs for the original technical error when sellers report ERR000.
//
// # Matching
//
// Sentinel errors are matched first with errors.Is. Anything else is
// matched case-insensitively against errorPatterns with strings.Contains;
// the first matching pattern wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgFileTooLarge     = UserMessage{"The file exceeds the upload size limit", "Split the file into smaller files", "FILE001"}
	msgInvalidFileType  = UserMessage{"Only .csv files can be uploaded", "Export your sheet as CSV and try again", "FILE002"}
	msgNoFile           = UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}
	msgEmptyFile        = UserMessage{"The uploaded file is empty", "Please upload a CSV file with data rows", "FILE005"}
	msgMissingHeader    = UserMessage{"No known product columns in the first row", "Download the template and copy its header row", "FILE006"}
	msgNoDataRows       = UserMessage{"The file has a header but no products", "Add at least one product below the header", "FILE007"}
	msgNoValidProducts  = UserMessage{"No valid products to upload", "Fix the rows listed in the preview and upload again", "VAL001"}
	msgUploadTimeout    = UserMessage{"The upload timed out", "Try again, or split the file so it uploads in batches", "UPL001"}
	msgTooManyUploads   = UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL002"}
	msgSessionNotFound  = UserMessage{"Upload session not found", "The session may have expired. Please start a new upload", "UPL003"}
	msgInvalidState     = UserMessage{"This step is not available yet", "Select a file and preview it before uploading", "UPL004"}
	msgCancelled        = UserMessage{"Request was cancelled", "Please try again", "UPL005"}
	msgUploadInFlight   = UserMessage{"An upload for this session is already running", "Wait for it to finish", "UPL006"}
	msgMarketplaceDown  = UserMessage{"Unable to reach the marketplace", "Please try again in a few moments", "NET001"}
	msgMarketplaceError = UserMessage{"The marketplace rejected the request", "Review the details and try again", "NET002"}
	msgMarketplaceSlow  = UserMessage{"The marketplace request timed out", "Please try again", "NET003"}
	msgNotSignedIn      = UserMessage{"Could not identify your seller account", "Sign in again and retry", "AUTH001"}
	msgForbidden        = UserMessage{"Your account may not perform this action", "Contact support if you believe this is wrong", "AUTH002"}
	msgRateLimited      = UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}
)

// sentinelMessages maps sentinel errors to user messages.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrInvalidFileType, msgInvalidFileType},
	{ErrNoFile, msgNoFile},
	{ErrEmptyFile, msgEmptyFile},
	{ErrMissingHeader, msgMissingHeader},
	{ErrNoDataRows, msgNoDataRows},
	{ErrNoValidProducts, msgNoValidProducts},
	{ErrUploadTimeout, msgUploadTimeout},
	{ErrTooManyUploads, msgTooManyUploads},
	{ErrSessionNotFound, msgSessionNotFound},
	{ErrInvalidState, msgInvalidState},
	{ErrUploadInFlight, msgUploadInFlight},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// More specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{"status 401", msgNotSignedIn},
	{"not authenticated", msgNotSignedIn},
	{"unauthorized", msgNotSignedIn},
	{"status 403", msgForbidden},
	{"forbidden", msgForbidden},
	{"status 429", msgRateLimited},
	{"rate limit", msgRateLimited},
	{"connection refused", msgMarketplaceDown},
	{"no such host", msgMarketplaceDown},
	{"connection reset", msgMarketplaceDown},
	{"marketplace api error", msgMarketplaceError},
	{"context deadline exceeded", msgMarketplaceSlow},
	{"timeout", msgMarketplaceSlow},
	{"context canceled", msgCancelled},
	{"must be a number", UserMessage{"Invalid number format detected", "Remove units and use plain numbers", "VAL002"}},
	{"is required", UserMessage{"Required field is empty", "Fill in name, description, price, category, stock and image", "VAL003"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("select file: %w", ErrFileTooLarge))
//	// msg.Code == "FILE001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with the message shown to the seller.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
