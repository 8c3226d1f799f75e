package orchestrator

import _ "embed"

// DeclineMessage is the fixed wire-compatible response for out-of-scope
// queries (spec §4.6 rule 3, §6.7), kept as a resource file rather than an
// inline string literal so its exact wording stays independently editable.
//go:embed resources/decline.txt
var DeclineMessage string
