// Package binding is the render capability the embedding host provides to
// the map facade: a data-binding scope and a renderer that compiles markup
// against it. Compiled nodes re-read the scope whenever they render, so
// content bound to host state stays live.
package binding

import (
	"errors"
	"fmt"
	"html/template"
	"maps"
	"strings"
	"sync"
)

// ErrEmptyMarkup is returned when there is nothing to compile
var ErrEmptyMarkup = errors.New("empty markup")

// DataKey is the template field holding per-compile data.
const DataKey = "Data"

// Scope is a data-binding context.
type Scope interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	// Values returns a snapshot of every visible value, parents first.
	Values() map[string]any
	// Child returns a scope inheriting this one with data exposed as DataKey.
	Child(data any) Scope
}

// Renderer compiles markup against a scope.
type Renderer interface {
	Compile(markup string, scope Scope) (*Node, error)
}

// Context is the default Scope implementation.
type Context struct {
	mu     sync.RWMutex
	parent *Context
	values map[string]any
}

// NewContext creates a root scope holding values.
func NewContext(values map[string]any) *Context {
	c := &Context{values: make(map[string]any, len(values))}
	maps.Copy(c.values, values)
	return c
}

// Get looks key up in this scope, then its parents.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	if c.parent != nil {
		return c.parent.Get(key)
	}
	return nil, false
}

// Set stores value in this scope.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Values returns the merged view of this scope and its parents.
func (c *Context) Values() map[string]any {
	var out map[string]any
	if c.parent != nil {
		out = c.parent.Values()
	} else {
		out = make(map[string]any)
	}
	c.mu.RLock()
	maps.Copy(out, c.values)
	c.mu.RUnlock()
	return out
}

// Child returns a scope inheriting c.
func (c *Context) Child(data any) Scope {
	return &Context{
		parent: c,
		values: map[string]any{DataKey: data},
	}
}

// Node is compiled markup bound to a scope.
type Node struct {
	tmpl  *template.Template
	scope Scope
}

// Render executes the markup against the current scope values.
func (n *Node) Render() (string, error) {
	var b strings.Builder
	if err := n.tmpl.Execute(&b, n.scope.Values()); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return b.String(), nil
}

// HTML renders the node, returning an empty string when rendering fails.
func (n *Node) HTML() string {
	s, err := n.Render()
	if err != nil {
		return ""
	}
	return s
}

// Scope returns the scope the node is bound to.
func (n *Node) Scope() Scope {
	return n.scope
}

// TemplateRenderer compiles markup as html/template text.
type TemplateRenderer struct {
	funcs template.FuncMap
}

// NewTemplateRenderer creates a renderer with optional template functions.
func NewTemplateRenderer(funcs template.FuncMap) *TemplateRenderer {
	return &TemplateRenderer{funcs: funcs}
}

// Compile parses markup and binds it to scope.
func (r *TemplateRenderer) Compile(markup string, scope Scope) (*Node, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, ErrEmptyMarkup
	}
	if scope == nil {
		return nil, errors.New("nil scope")
	}
	tmpl := template.New("content").Option("missingkey=zero")
	if r.funcs != nil {
		tmpl = tmpl.Funcs(r.funcs)
	}
	tmpl, err := tmpl.Parse(markup)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	node := &Node{tmpl: tmpl, scope: scope}
	// surface execution errors at compile time rather than on first open
	if _, err := node.Render(); err != nil {
		return nil, err
	}
	return node, nil
}
