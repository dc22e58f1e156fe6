package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	maxIDLength    = 64
	maxLabelLength = 64
	maxLabels      = 50
	maxQueryLength = 2000
)

// ValidateID validates an agent or conversation id taken from a path.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if len(id) > maxIDLength {
		return errors.New("id exceeds maximum length")
	}
	if strings.ContainsAny(id, "/?#") {
		return errors.New("invalid id format")
	}
	return nil
}

// ValidateLabels validates a label set.
func ValidateLabels(labels []string) error {
	if len(labels) > maxLabels {
		return errors.New("too many labels")
	}
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			return errors.New("label cannot be empty")
		}
		if len(l) > maxLabelLength {
			return errors.New("label exceeds maximum length")
		}
		if !utf8.ValidString(l) {
			return errors.New("label must be valid UTF-8")
		}
	}
	return nil
}

// ValidateQuery validates a semantic search query. Empty queries are allowed
// and return no results.
func ValidateQuery(query string) error {
	if len(query) > maxQueryLength {
		return errors.New("query exceeds maximum length")
	}
	if !utf8.ValidString(query) {
		return errors.New("query must be valid UTF-8")
	}
	return nil
}

// ValidateCredentials validates a login form.
func ValidateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("username is required")
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}
