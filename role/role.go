// Package role holds the catalog of discussion personas.
//
// A Template is a static, reusable definition of a persona; a discussion
// copies its fields into a conversation.Participant and never mutates it.
// The catalog is append-only: custom roles may be registered at runtime but
// entries are never removed.
package role

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/pkg/uuidx"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Template is one catalog entry.
type Template struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Instructions      string   `json:"instructions"`
	SuggestedProvider string   `json:"suggested_provider,omitempty"`
	Tags              []string `json:"tags,omitempty"`
}

// UnknownRoleError is returned when a participant names a role the catalog
// does not know.
type UnknownRoleError struct {
	ID string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q", e.ID)
}

var (
	ErrDuplicateRole = errors.New("role already registered")
	ErrInvalidRole   = errors.New("role template is invalid")
)

// Catalog holds role templates in registration order. It is safe for
// concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	templates *orderedmap.OrderedMap[string, Template]
}

// NewCatalog creates a catalog holding the given templates in order.
func NewCatalog(templates ...Template) (*Catalog, error) {
	c := &Catalog{templates: orderedmap.New[string, Template]()}
	for _, tpl := range templates {
		if err := c.Register(tpl); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Default returns a catalog preloaded with the built-in roles.
func Default() *Catalog {
	c, err := NewCatalog(Defaults()...)
	if err != nil {
		panic(err)
	}
	return c
}

// Register appends tpl to the catalog.
func (c *Catalog) Register(tpl Template) error {
	tpl.ID = strings.TrimSpace(tpl.ID)
	if tpl.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRole)
	}
	if strings.TrimSpace(tpl.Instructions) == "" {
		return fmt.Errorf("%w: %s has no instructions", ErrInvalidRole, tpl.ID)
	}
	if tpl.Name == "" {
		tpl.Name = tpl.ID
	}
	tpl.Tags = append([]string(nil), tpl.Tags...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.templates.Get(tpl.ID); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRole, tpl.ID)
	}
	c.templates.Set(tpl.ID, tpl)
	return nil
}

// ByID returns the template registered under id.
func (c *Catalog) ByID(id string) (Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.templates.Get(id)
}

// List returns all templates in registration order.
func (c *Catalog) List() []Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Template, 0, c.templates.Len())
	for pair := c.templates.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// BuildParticipant creates an active participant playing roleID on
// providerName. An empty providerName falls back to the template's suggested
// provider and an empty displayName to the template name.
func (c *Catalog) BuildParticipant(roleID, providerName, displayName string) (conversation.Participant, error) {
	tpl, ok := c.ByID(roleID)
	if !ok {
		return conversation.Participant{}, &UnknownRoleError{ID: roleID}
	}
	if providerName == "" {
		providerName = tpl.SuggestedProvider
	}
	if displayName == "" {
		displayName = tpl.Name
	}
	return conversation.Participant{
		ID:           uuidx.Prefixed("part"),
		Role:         tpl.ID,
		Name:         displayName,
		Provider:     providerName,
		Instructions: tpl.Instructions,
		Active:       true,
	}, nil
}
