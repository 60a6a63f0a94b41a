package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// URLValidationError represents a URL validation failure
type URLValidationError struct {
	Field   string
	Message string
	URL     string
}

func (e URLValidationError) Error() string {
	return fmt.Sprintf("%s: %s (url: %s)", e.Field, e.Message, e.URL)
}

// ValidateURL checks that a non-empty value is an absolute http(s) URL.
// With requireHTTPS only https is accepted.
func ValidateURL(urlString, fieldName string, requireHTTPS bool) error {
	if urlString == "" {
		return nil
	}

	fail := func(msg string) error {
		return URLValidationError{Field: fieldName, Message: msg, URL: urlString}
	}

	parsedURL, err := url.Parse(urlString)
	if err != nil {
		return fail("invalid URL format")
	}
	if parsedURL.Scheme == "" {
		return fail("URL must include a scheme (http:// or https://)")
	}
	if parsedURL.Host == "" {
		return fail("URL must include a host")
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if requireHTTPS && scheme != "https" {
		return fail("URL must use HTTPS in production")
	}
	if scheme != "http" && scheme != "https" {
		return fail("URL scheme must be http or https")
	}
	return nil
}

// ValidateBaseURL is ValidateURL for service endpoints, which must not
// carry a path, query or fragment.
func ValidateBaseURL(urlString, fieldName string, requireHTTPS bool) error {
	if err := ValidateURL(urlString, fieldName, requireHTTPS); err != nil {
		return err
	}
	if urlString == "" {
		return nil
	}

	parsedURL, _ := url.Parse(urlString)
	switch {
	case parsedURL.Path != "" && parsedURL.Path != "/":
		return URLValidationError{Field: fieldName, Message: "base URL must not contain a path", URL: urlString}
	case parsedURL.RawQuery != "":
		return URLValidationError{Field: fieldName, Message: "base URL must not contain query parameters", URL: urlString}
	case parsedURL.Fragment != "":
		return URLValidationError{Field: fieldName, Message: "base URL must not contain a fragment", URL: urlString}
	}
	return nil
}
