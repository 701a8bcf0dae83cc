package constants

import "errors"

// Configuration errors.
var (
	ErrNoEndpointConfigured = errors.New("no API endpoint configured, use 'teatime config set endpoint <url>' or --api")
	ErrVendorNotConfigured  = errors.New("vendor entry not found in configuration")
	ErrUnknownVendor        = errors.New("unknown vendor, expected gitlab, vault, or sensu")
	ErrUnknownConfigKey     = errors.New("unknown configuration key")
	ErrTokenCannotBeSet     = errors.New("tokens are managed by 'teatime login', not by config set")
)

// Authentication errors.
var (
	ErrPasswordRequired = errors.New("password is required")
	ErrUsernameRequired = errors.New("username is required")
)

// Input validation errors.
var (
	ErrInvalidKeyValue = errors.New("expected key=value")
	ErrInvalidOutput   = errors.New("invalid output format, expected table, json, or yaml")
	ErrTargetRequired  = errors.New("a request target is required")
	ErrInvalidMaxPages = errors.New("max-pages must be zero or positive")
)
