package utils

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/dto"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	stateCodeRegex  = regexp.MustCompile(`\(\s*\d+\s*\)`)
)

// ExtractHeaders applies every rule to the full page text and returns the
// extracted values. Every rule is mandatory: the first one that does not
// match (or whose date does not parse) fails the whole extraction.
func ExtractHeaders(text string, rules dto.FieldRules) (dto.ExtractedHeaders, error) {
	headers := make(dto.ExtractedHeaders, len(rules))

	for _, rule := range rules {
		re, err := CompileFieldRule(rule)
		if err != nil {
			return nil, err
		}

		value := ""
		if m := re.FindStringSubmatch(text); m != nil {
			if len(m) > 1 {
				value = m[1]
			} else {
				value = m[0]
			}
		}
		value = NormalizeWhitespace(value)

		if value == "" {
			return nil, eris.Wrapf(dto.ErrHeaderExtraction,
				"could not extract required field '%s' (regex: %s)", rule.Name, re.String())
		}

		if rule.DateFormat != "" {
			t, err := ParseDate(value, rule.DateFormat)
			if err != nil {
				return nil, eris.Wrapf(dto.ErrHeaderExtraction,
					"could not parse date for field '%s': '%s' with format '%s'", rule.Name, value, rule.DateFormat)
			}
			headers.SetDate(rule.Name, value, t)
		} else {
			headers.SetText(rule.Name, value)
		}

		zap.L().Debug("extracted header", zap.String("field", rule.Name), zap.String("value", value))
	}

	return headers, nil
}

// CompileFieldRule builds the case-insensitive pattern for a rule. A rule
// without a regex is matched as "<keyword> [:#-] <rest of line>".
func CompileFieldRule(rule dto.FieldRule) (*regexp.Regexp, error) {
	pattern := rule.Regex
	if pattern == "" {
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, regexp.QuoteMeta(kw))
			}
		}
		if len(keywords) == 0 {
			return nil, eris.Wrapf(dto.ErrHeaderExtraction, "field '%s' has neither regex nor keywords", rule.Name)
		}
		pattern = `(?:` + strings.Join(keywords, "|") + `)\s*[:#\-]?\s*([^\n]+)`
	}

	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return nil, eris.Wrapf(dto.ErrHeaderExtraction, "invalid regex for field '%s': %v", rule.Name, err)
	}
	return re, nil
}

// NormalizeWhitespace trims s and collapses inner whitespace runs to one space.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// CleanState drops an embedded numeric state code: "Maharashtra(27)" -> "Maharashtra".
func CleanState(raw string) string {
	return NormalizeWhitespace(stateCodeRegex.ReplaceAllString(raw, ""))
}
