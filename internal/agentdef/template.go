package agentdef

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes only the `{{key}}` placeholders present in both
// template and context (spec §3, §8 testable property 10); any
// placeholder whose key is absent from context, and all characters
// outside `{{...}}`, are left untouched.
func Render(template string, context map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		key := groups[1]
		if value, ok := context[key]; ok {
			return value
		}
		return match
	})
}
