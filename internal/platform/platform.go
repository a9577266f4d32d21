// internal/platform/platform.go
package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrUnknownPlatform is returned by Lookup for keys outside the table.
var ErrUnknownPlatform = errors.New("unknown platform")

// Platform is one specialization target.
type Platform struct {
	Key        string `json:"key" yaml:"-"`
	Label      string `json:"label" yaml:"label"`
	Capability string `json:"capability" yaml:"capability"`
}

// Registry is the ordered platform table. Order is the order controls are shown in.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	platforms map[string]Platform
}

// NewRegistry returns an empty table.
func NewRegistry() *Registry {
	return &Registry{platforms: make(map[string]Platform)}
}

// Default returns the built-in five-platform table.
func Default() *Registry {
	r := NewRegistry()
	for _, p := range []Platform{
		{Label: "Twitter", Capability: "Short post under 280 characters with 2-3 hashtags"},
		{Label: "Instagram", Capability: "Caption with a hook, emojis, hashtags and a visual suggestion"},
		{Label: "Facebook", Capability: "Conversational post under 150 words that invites comments"},
		{Label: "TikTok", Capability: "Scene-by-scene 15-20 second video script"},
		{Label: "Blog", Capability: "SEO-optimized blog post with title, subheadings and meta description"},
	} {
		// built-in labels are unique and non-empty
		_ = r.Register(p)
	}
	return r
}

// Key derives the wire value for a label: lower-cased and trimmed.
func Key(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Register adds a platform at the end of the table.
func (r *Registry) Register(p Platform) error {
	p.Label = strings.TrimSpace(p.Label)
	if p.Label == "" {
		return fmt.Errorf("platform label must not be empty")
	}
	p.Key = Key(p.Label)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.platforms[p.Key]; exists {
		return fmt.Errorf("duplicate platform %q", p.Key)
	}
	r.platforms[p.Key] = p
	r.order = append(r.order, p.Key)
	return nil
}

// Lookup finds a platform by key or label, case-insensitively.
func (r *Registry) Lookup(name string) (Platform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.platforms[Key(name)]
	if !ok {
		return Platform{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}
	return p, nil
}

// All returns the platforms in display order.
func (r *Registry) All() []Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Platform, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.platforms[key])
	}
	return out
}

// Keys returns the wire keys in display order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of platforms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

type fileFormat struct {
	Platforms []Platform `yaml:"platforms"`
}

// LoadFile reads a replacement table:
//
//	platforms:
//	  - label: Twitter
//	    capability: Short post with hashtags
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read platforms file: %w", err)
	}
	return Parse(data)
}

// Parse builds a table from YAML bytes.
func Parse(data []byte) (*Registry, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse platforms file: %w", err)
	}
	if len(f.Platforms) == 0 {
		return nil, fmt.Errorf("platforms file defines no platforms")
	}
	r := NewRegistry()
	for _, p := range f.Platforms {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Load returns the table from path, or Default when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Heading is the capitalized platform name used in result headings and history.
func Heading(key string) string {
	// a Caser keeps state, so one per call
	return cases.Title(language.Und).String(Key(key))
}
