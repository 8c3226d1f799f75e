package agent

import "testing"

func TestExtractToolCall_NoSentinel(t *testing.T) {
	_, ok := extractToolCall("just a plain reply, nothing to run")
	if ok {
		t.Fatal("expected no tool call extracted from plain content")
	}
}

func TestExtractToolCall_ValidJSON(t *testing.T) {
	content := `I'll check that.
<tool>web_search</tool><params>{"query":"rocky linux eol date"}</params>`
	call, ok := extractToolCall(content)
	if !ok {
		t.Fatal("expected a tool call to be extracted")
	}
	if call.Name != "web_search" {
		t.Fatalf("expected web_search, got %q", call.Name)
	}
	if call.Args["query"] != "rocky linux eol date" {
		t.Fatalf("unexpected args: %+v", call.Args)
	}
}

func TestExtractToolCall_MalformedParamsFallsBackToQuery(t *testing.T) {
	content := `<tool>web_search</tool><params>not valid json at all</params>`
	call, ok := extractToolCall(content)
	if !ok {
		t.Fatal("expected a tool call to be extracted")
	}
	if call.Args["query"] != "not valid json at all" {
		t.Fatalf("expected raw params wrapped as query, got %+v", call.Args)
	}
}

func TestExtractToolCall_EmptyParams(t *testing.T) {
	content := `<tool>list_services</tool><params></params>`
	call, ok := extractToolCall(content)
	if !ok {
		t.Fatal("expected a tool call to be extracted")
	}
	if len(call.Args) != 0 {
		t.Fatalf("expected empty args map, got %+v", call.Args)
	}
}

func TestExtractToolCall_MultilineParams(t *testing.T) {
	content := "<tool>\nweb_search\n</tool>\n<params>\n{\"query\": \"btrfs snapshot rollback\"}\n</params>"
	call, ok := extractToolCall(content)
	if !ok {
		t.Fatal("expected a tool call to be extracted across newlines")
	}
	if call.Name != "web_search" || call.Args["query"] != "btrfs snapshot rollback" {
		t.Fatalf("unexpected call: %+v", call)
	}
}
