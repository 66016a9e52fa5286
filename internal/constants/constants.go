package constants

import "time"

// Boolean string values
const (
	BoolTrue  = "true"
	BoolFalse = "false"
	BoolYes   = "yes"
	BoolNo    = "no"
	BoolOne   = "1"
	BoolZero  = "0"
)

// Browsing defaults
const (
	DefaultPerPage       = 12
	MaxPerPage           = 100
	DefaultDebounceDelay = 500 * time.Millisecond
	NotesNamespace       = "notes"

	// Remote fetch policy
	DefaultFetchRetries   = 3
	DefaultRetryBaseDelay = time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// Note validation limits
const (
	MinTitleLength   = 3
	MaxTitleLength   = 50
	MaxContentLength = 500
)

// Text truncation lengths
const (
	PreviewLength      = 100
	ShortPreviewLength = 80
)

// File permissions
const (
	ConfigFileMode = 0600 // Secure file permissions for config
)
