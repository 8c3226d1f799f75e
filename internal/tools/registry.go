// Package tools implements the Tool Registry & Schemas component (spec
// §4.1): a declarative catalog of tools, JSON-schema argument validation,
// and dispatch. Concrete tool implementations (web search, calculator,
// etc.) are out of scope per spec.md's Non-goals; this package only
// supplies the registry, validation, and the wildcard policy machinery
// that concrete tools plug into.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/orito-ai/orito-core/internal/kinderr"
)

// MaxToolNameLength and MaxParamsSize bound pathological inputs, mirroring
// the teacher's internal/agent/tool_registry.go guards.
const (
	MaxToolNameLength = 256
	MaxParamsSize     = 10 << 20 // 10MB
)

// Handler executes a tool call with validated arguments and returns an
// arbitrary JSON-serializable result, or an error. Per spec §4.1 the
// Registry never lets this error escape as a Go error from Execute; it is
// captured into Result.Error instead.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Definition is a tool's declarative catalog entry.
type Definition struct {
	Name        string
	Description string
	// Schema is the tool's parameter JSON Schema document (object schema
	// with typed properties, required list, optional enum/items).
	Schema  json.RawMessage
	Handler Handler

	compiled *jsonschema.Schema
}

// Result is the outcome of Registry.Execute (spec §4.1:
// "{data?, error?, durationMs}").
type Result struct {
	Data       any           `json:"data,omitempty"`
	Error      string        `json:"error,omitempty"`
	DurationMs int64         `json:"durationMs"`
}

// Registry is a concurrency-safe name -> Definition catalog.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Definition)}
}

// Register compiles def's schema (if present) and adds it to the catalog.
// Registering a name a second time replaces the previous definition.
func (r *Registry) Register(def Definition) error {
	if len(def.Schema) > 0 {
		compiler := jsonschema.NewCompiler()
		resourceName := "tool:" + def.Name
		if err := compiler.AddResource(resourceName, bytes.NewReader(def.Schema)); err != nil {
			return fmt.Errorf("compile schema for %s: %w", def.Name, err)
		}
		compiled, err := compiler.Compile(resourceName)
		if err != nil {
			return fmt.Errorf("compile schema for %s: %w", def.Name, err)
		}
		def.compiled = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = &def
	return nil
}

// Unregister removes a tool from the catalog.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// GetDefinition returns the tool's schema, per spec §4.1's
// getDefinition(name) -> Schema?.
func (r *Registry) GetDefinition(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	if !ok {
		return Definition{}, false
	}
	return *def, true
}

// Names lists all registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// AllowedFn reports whether a given tool name is permitted in the current
// call's context (an agent's ToolPolicy, typically).
type AllowedFn func(name string) bool

// Execute validates args against the tool's schema then dispatches to its
// handler, timing the call. It never returns a non-nil Go error for tool
// failures — those are reported in Result.Error — but does return one for
// the two dispatch-level kinded failures (UnknownTool, ToolNotAllowed) so
// callers can distinguish "tool ran and failed" from "tool could not run".
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, allowed AllowedFn) (Result, error) {
	if len(name) > MaxToolNameLength {
		return Result{}, kinderr.New(kinderr.KindUnknownTool, "tool name exceeds maximum length")
	}

	r.mu.RLock()
	def, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, kinderr.New(kinderr.KindUnknownTool, fmt.Sprintf("unknown tool %q", name))
	}

	if allowed != nil && !allowed(name) {
		return Result{}, kinderr.New(kinderr.KindToolNotAllowed, fmt.Sprintf("tool %q is not allowed", name))
	}

	if def.compiled != nil {
		if err := def.compiled.Validate(toAny(args)); err != nil {
			return Result{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
		}
	}

	start := time.Now()
	data, err := def.Handler(ctx, args)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		return Result{Error: err.Error(), DurationMs: duration}, nil
	}
	return Result{Data: data, DurationMs: duration}, nil
}

func toAny(args map[string]any) any {
	// jsonschema validates against decoded JSON values (map[string]any is
	// already in that shape); round-tripping through json guarantees
	// number/bool normalization matches what a wire-decoded payload would
	// produce.
	b, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return args
	}
	return v
}
