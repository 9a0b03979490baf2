// Package mcp implements the tool transport: a framed JSON-RPC client
// for invoking named tools over a persistent duplex channel, an HTTP
// variant of the same surface, and the tool registry both serve from.
package mcp

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrTimeout indicates no matching response arrived within the wait.
	ErrTimeout = errors.New("tool call timed out")

	// ErrNotConnected indicates the transport is closed or was never opened.
	ErrNotConnected = errors.New("transport not connected")

	// ErrToolNotFound indicates the named tool is not registered.
	ErrToolNotFound = errors.New("tool not found")
)

// Tool is a named operation invocable through the transport.
type Tool interface {
	Name() string
	Description() string
	Exec(ctx context.Context, args map[string]any) (any, error)
}

// Definition describes a tool to clients.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// Registry is a concurrency-safe tool catalog.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns definitions for all registered tools, sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, Definition{Name: tool.Name(), Description: tool.Description()})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
