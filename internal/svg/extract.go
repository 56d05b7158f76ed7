// Package svg locates SVG markup in free-form model output and packs it into data URLs.
package svg

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DataURLPrefix is prepended to the base64 payload of every generated image.
const DataURLPrefix = "data:image/svg+xml;base64,"

// ErrNoSVGFound is returned when the text contains no <svg>...</svg> span.
var ErrNoSVGFound = errors.New("no valid SVG code found in the response")

var (
	// fencedPattern matches a ``` fence, optionally tagged xml or svg, around an svg element.
	fencedPattern = regexp.MustCompile("```(?:xml|svg)?\\s*(<svg[\\s\\S]*?</svg>)\\s*```")

	// barePattern matches the first svg element anywhere in the text.
	barePattern = regexp.MustCompile(`<svg[\s\S]*?</svg>`)
)

// Extract returns the SVG element found in raw.
// A fenced code block wins over a bare element; both matches are non-greedy so
// a response carrying several drawings yields only the first.
func Extract(raw string) (string, error) {
	if m := fencedPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	if m := barePattern.FindString(raw); m != "" {
		return m, nil
	}
	return "", ErrNoSVGFound
}

// DataURL encodes markup as a base64 data URL. Go strings are UTF-8, so
// non-ASCII text inside the drawing survives the round trip.
func DataURL(markup string) string {
	return DataURLPrefix + base64.StdEncoding.EncodeToString([]byte(markup))
}

// DecodeDataURL reverses DataURL.
func DecodeDataURL(url string) (string, error) {
	payload, ok := strings.CutPrefix(url, DataURLPrefix)
	if !ok {
		return "", fmt.Errorf("not an svg data url")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode svg payload: %w", err)
	}
	return string(raw), nil
}
