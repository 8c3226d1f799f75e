package agentdef

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/orito-ai/orito-core/internal/kinderr"
)

const sampleDefinition = `---
name: research
description: Gathers background reading
mode: autonomous
color: blue
tools:
  allowed:
    - "web_*"
    - search_wikipedia
  restricted:
    - web_dangerous
maxTokens: 4000
maxResults: 5
maxSubAgents: 1
---
You are {{agentName}}, researching: {{task}}
`

func writeDefinition(t *testing.T, dir, agentType, content string) {
	t.Helper()
	typeDir := filepath.Join(dir, agentType)
	if err := os.MkdirAll(typeDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(typeDir, DefinitionFilename), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoader_LoadAndCache(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "research", sampleDefinition)

	loader := New(dir)
	def, err := loader.Load("research")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if def.Name != "research" || def.Mode != "autonomous" || def.MaxSubAgents != 1 {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if !def.Tools.IsAllowed("web_search") || def.Tools.IsAllowed("web_dangerous") {
		t.Fatalf("unexpected tool policy: %+v", def.Tools)
	}

	// Remove the file; cached load must still succeed.
	os.RemoveAll(filepath.Join(dir, "research"))
	again, err := loader.Load("research")
	if err != nil {
		t.Fatalf("Load from cache: %v", err)
	}
	if again != def {
		t.Fatal("expected identical cached pointer")
	}
}

func TestLoader_Invalidate(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "research", sampleDefinition)
	loader := New(dir)
	if _, err := loader.Load("research"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	loader.Invalidate("research")
	os.RemoveAll(filepath.Join(dir, "research"))
	if _, err := loader.Load("research"); !kinderr.Is(err, kinderr.KindUnknownAgentType) {
		t.Fatalf("expected UnknownAgentType after invalidate+delete, got %v", err)
	}
}

func TestLoader_UnknownType(t *testing.T) {
	dir := t.TempDir()
	loader := New(dir)
	_, err := loader.Load("nonexistent")
	if !kinderr.Is(err, kinderr.KindUnknownAgentType) {
		t.Fatalf("expected UnknownAgentType, got %v", err)
	}
}

func TestParse_MissingRequiredField(t *testing.T) {
	_, err := Parse([]byte("---\nname: research\n---\nbody\n"))
	if !kinderr.Is(err, kinderr.KindInvalidDefinition) {
		t.Fatalf("expected InvalidDefinition, got %v", err)
	}
}

func TestRender_OnlySubstitutesKnownKeys(t *testing.T) {
	got := Render("Hello {{name}}, task: {{task}}. Unused: {{missing}}.", map[string]string{
		"name": "Curious",
		"task": "collect profile",
	})
	want := "Hello Curious, task: collect profile. Unused: {{missing}}."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRender_NoPlaceholders(t *testing.T) {
	got := Render("plain text with no placeholders", map[string]string{"x": "y"})
	if got != "plain text with no placeholders" {
		t.Fatalf("expected untouched text, got %q", got)
	}
}
