package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// validateQualifier checks a value that ends up inside a GitHub search
// qualifier (language:X, topic:Y). It rejects values that would break out of
// the qualifier or the surrounding query string.
//
// The validation rules are intentionally conservative:
//   - No empty values
//   - No control characters
//   - No whitespace, quotes or colons
//   - Maximum length of 100 characters
func validateQualifier(code Code, kind, value string) error {
	if value == "" {
		return New(code, "%s cannot be empty", kind)
	}

	if len(value) > 100 {
		return New(code, "%s too long (max 100 characters)", kind)
	}

	for _, r := range value {
		if unicode.IsControl(r) {
			return New(code, "%s contains invalid control characters", kind)
		}
		if unicode.IsSpace(r) {
			return New(code, "%s cannot contain whitespace: %q", kind, value)
		}
	}

	if strings.ContainsAny(value, `":\`) {
		return New(code, "%s contains invalid characters: %q", kind, value)
	}

	return nil
}

// languageRegex matches GitHub linguist language names as used in the
// language: qualifier (c++, c#, objective-c, f*, ...).
var languageRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9+#*._'-]*$`)

// ValidateLanguage validates a language name for the language: qualifier.
func ValidateLanguage(name string) error {
	if err := validateQualifier(ErrCodeInvalidLanguage, "language", name); err != nil {
		return err
	}
	if !languageRegex.MatchString(name) {
		return New(ErrCodeInvalidLanguage, "invalid language: %q", name)
	}
	return nil
}

// topicRegex matches GitHub topic names: lowercase letters, digits and hyphens.
var topicRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidateTopic validates a topic for the topic: qualifier.
// Topics are case-insensitive on GitHub; callers lower-case them first.
func ValidateTopic(topic string) error {
	if err := validateQualifier(ErrCodeInvalidTopic, "topic", topic); err != nil {
		return err
	}
	if !topicRegex.MatchString(strings.ToLower(topic)) {
		return New(ErrCodeInvalidTopic, "invalid topic: %q", topic)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
