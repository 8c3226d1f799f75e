// Package agentdef implements the Agent Definition Loader (spec §4.3):
// parsing a declarative agent definition (YAML frontmatter + Markdown
// prompt body) from disk, caching it per type, and rendering its
// {{key}} template placeholders. Grounded on the teacher's
// internal/skills.ParseSkill frontmatter convention.
package agentdef

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/orito-ai/orito-core/internal/kinderr"
	"github.com/orito-ai/orito-core/pkg/models"
)

// FrontmatterDelimiter marks the beginning and end of a definition's YAML
// frontmatter block.
const FrontmatterDelimiter = "---"

// DefinitionFilename is the expected filename inside each agent type's
// directory.
const DefinitionFilename = "AGENT.md"

// Loader parses and caches AgentDefinitions keyed by agent type. Per spec
// §4.3, a definition is "cached per-type" — Load only re-parses from disk
// the first time a type is requested.
type Loader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*models.AgentDefinition
}

// New creates a Loader that reads definitions from dir/<agentType>/AGENT.md.
func New(dir string) *Loader {
	return &Loader{dir: dir, cache: make(map[string]*models.AgentDefinition)}
}

// Load returns the cached definition for agentType, parsing it from disk
// on first access. Fails with kinderr.KindInvalidDefinition or wraps a
// not-found read error as kinderr.KindUnknownAgentType.
func (l *Loader) Load(agentType string) (*models.AgentDefinition, error) {
	l.mu.RLock()
	if def, ok := l.cache[agentType]; ok {
		l.mu.RUnlock()
		return def, nil
	}
	l.mu.RUnlock()

	path := filepath.Join(l.dir, agentType, DefinitionFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kinderr.Wrap(kinderr.KindUnknownAgentType, fmt.Sprintf("no definition for agent type %q", agentType), err)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[agentType] = def
	l.mu.Unlock()
	return def, nil
}

// Invalidate drops a cached definition so the next Load re-reads it from
// disk (used by hot-reload watchers).
func (l *Loader) Invalidate(agentType string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, agentType)
}

// Parse reads an AGENT.md document (frontmatter + prompt body) and
// validates its required fields (spec §4.3).
func Parse(data []byte) (*models.AgentDefinition, error) {
	frontmatter, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, kinderr.Wrap(kinderr.KindInvalidDefinition, "malformed agent definition", err)
	}

	var def models.AgentDefinition
	if err := yaml.Unmarshal(frontmatter, &def); err != nil {
		return nil, kinderr.Wrap(kinderr.KindInvalidDefinition, "invalid frontmatter", err)
	}
	def.SystemPrompt = strings.TrimSpace(string(body))

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// splitFrontmatter separates the leading "---"-delimited YAML block from
// the remaining Markdown body.
func splitFrontmatter(data []byte) ([]byte, []byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("empty definition")
	}
	if strings.TrimSpace(scanner.Text()) != FrontmatterDelimiter {
		return nil, nil, fmt.Errorf("missing opening frontmatter delimiter")
	}

	var frontmatterLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == FrontmatterDelimiter {
			closed = true
			break
		}
		frontmatterLines = append(frontmatterLines, line)
	}
	if !closed {
		return nil, nil, fmt.Errorf("missing closing frontmatter delimiter")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	return []byte(strings.Join(frontmatterLines, "\n")), []byte(strings.Join(bodyLines, "\n")), nil
}
