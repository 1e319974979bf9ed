package content

import (
	"bytes"
	"errors"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	policy       = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
	markdown     = goldmark.New(goldmark.WithExtensions(extension.GFM))
	channelRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// Sanitize removes unsafe HTML from the input string, keeping the markup
// allowed in user generated content.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// StripTags removes every HTML tag from input. It is used for plain text
// fields such as titles and names.
func StripTags(input string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(input))
}

// RenderMarkdown converts a markdown post body to HTML that is safe to embed.
func RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return policy.Sanitize(buf.String()), nil
}

// ValidateChannelName checks that name is non-empty and uses only
// alphanumerics, dot, dash and underscore.
func ValidateChannelName(name string) error {
	if name == "" {
		return errors.New("channel name cannot be empty")
	}
	if len(name) > 64 {
		return errors.New("channel name is too long")
	}
	if !channelRegex.MatchString(name) {
		return errors.New("channel name contains invalid characters (allowed: alphanumeric, dot, dash, underscore)")
	}
	return nil
}
