// Package convo holds the per-session conversation data: the context
// store, the plan execution state, the conversation goal, and the
// message transcript. Everything here is owned by a single orchestrator
// instance for one session; no locking.
package convo

import "reflect"

// Section names a Context map targeted by Merge.
type Section string

const (
	SectionFacts       Section = "facts"
	SectionAssumptions Section = "assumptions"
	SectionUserIntent  Section = "user_intent"
	SectionConstraints Section = "constraints"
)

// SpecificationsKey is merged key-wise rather than replaced, so
// incremental specification details accumulate across turns.
const SpecificationsKey = "specifications"

// Context accumulates structured knowledge extracted from the
// conversation across turns.
type Context struct {
	Facts       map[string]any `json:"facts"`
	Assumptions map[string]any `json:"assumptions"`
	UserIntent  map[string]any `json:"user_intent"`
	Constraints map[string]any `json:"constraints"`
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{
		Facts:       make(map[string]any),
		Assumptions: make(map[string]any),
		UserIntent:  make(map[string]any),
		Constraints: make(map[string]any),
	}
}

func (c *Context) section(s Section) map[string]any {
	switch s {
	case SectionAssumptions:
		return c.Assumptions
	case SectionUserIntent:
		return c.UserIntent
	case SectionConstraints:
		return c.Constraints
	default:
		return c.Facts
	}
}

// Merge folds updates into a section. Empty values (nil, empty string,
// empty map, empty slice) are skipped so a sparse extractor result never
// erases knowledge. The reserved "specifications" key is merged key-wise
// into the existing sub-map; all other keys are last-write-wins.
func (c *Context) Merge(updates map[string]any, section Section) {
	if len(updates) == 0 {
		return
	}
	target := c.section(section)
	for key, value := range updates {
		if isEmptyValue(value) {
			continue
		}
		if key == SpecificationsKey {
			if sub, ok := value.(map[string]any); ok {
				existing, _ := target[key].(map[string]any)
				if existing == nil {
					existing = make(map[string]any, len(sub))
				}
				for k, v := range sub {
					existing[k] = v
				}
				target[key] = existing
				continue
			}
		}
		target[key] = value
	}
}

// MergeFacts is shorthand for merging into the facts section.
func (c *Context) MergeFacts(updates map[string]any) {
	c.Merge(updates, SectionFacts)
}

// Get returns the value for key, resolving facts before assumptions.
func (c *Context) Get(key string, def any) any {
	if v, ok := c.Facts[key]; ok && !isEmptyValue(v) {
		return v
	}
	if v, ok := c.Assumptions[key]; ok && !isEmptyValue(v) {
		return v
	}
	return def
}

// Has reports whether key resolves to a non-empty value.
func (c *Context) Has(key string) bool {
	return c.Get(key, nil) != nil
}

// HasAll reports whether every key resolves to a non-empty value.
func (c *Context) HasAll(keys []string) bool {
	for _, key := range keys {
		if !c.Has(key) {
			return false
		}
	}
	return true
}

// MissingKeys returns the subset of keys that do not resolve, preserving
// input order.
func (c *Context) MissingKeys(keys []string) []string {
	var missing []string
	for _, key := range keys {
		if !c.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// Snapshot returns a shallow copy of all four sections.
func (c *Context) Snapshot() map[string]map[string]any {
	return map[string]map[string]any{
		string(SectionFacts):       copyMap(c.Facts),
		string(SectionAssumptions): copyMap(c.Assumptions),
		string(SectionUserIntent):  copyMap(c.UserIntent),
		string(SectionConstraints): copyMap(c.Constraints),
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return val == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	default:
		return false
	}
}
