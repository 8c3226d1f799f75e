package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// sentinelPattern extracts the first <tool>NAME</tool><params>JSON</params>
// occurrence from an assistant turn (spec §4.4, §9: "ad-hoc sentinels ...
// specified verbatim for compatibility"). Only a single tool invocation is
// extracted per loop iteration, matching the loop's one-tool-per-turn
// contract.
var sentinelPattern = regexp.MustCompile(`(?s)<tool>\s*(.*?)\s*</tool>\s*<params>\s*(.*?)\s*</params>`)

// extractedToolCall is the sentinel-parsed invocation before argument
// validation.
type extractedToolCall struct {
	Name string
	Args map[string]any
}

// extractToolCall finds the first sentinel in content and parses its
// params. A params body that fails to parse as JSON is wrapped as
// {"query": <raw>} per spec §4.4 step 4. Returns ok=false if no sentinel
// is present, meaning content is the agent's final reply.
func extractToolCall(content string) (extractedToolCall, bool) {
	match := sentinelPattern.FindStringSubmatch(content)
	if match == nil {
		return extractedToolCall{}, false
	}
	name := strings.TrimSpace(match[1])
	rawParams := strings.TrimSpace(match[2])

	var args map[string]any
	if rawParams == "" {
		args = map[string]any{}
	} else if err := json.Unmarshal([]byte(rawParams), &args); err != nil {
		args = map[string]any{"query": rawParams}
	}
	return extractedToolCall{Name: name, Args: args}, true
}
