package symposium

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultOwner owns discussions started without an owner id.
	DefaultOwner = "local"

	maxTitleRunes = 80
)

// ParticipantSpec asks for one participant: a catalog role played by a
// named provider. Empty Provider falls back to the role's suggested provider
// and empty Name to the role's display name.
type ParticipantSpec struct {
	Role     string `json:"role"`
	Provider string `json:"provider,omitempty"`
	Name     string `json:"name,omitempty"`
}

// ParseParticipantSpec parses "role", "role=provider" or
// "role=provider:Display Name".
func ParseParticipantSpec(s string) (ParticipantSpec, error) {
	roleID, rest, _ := strings.Cut(strings.TrimSpace(s), "=")
	providerName, name, _ := strings.Cut(rest, ":")
	spec := ParticipantSpec{
		Role:     strings.TrimSpace(roleID),
		Provider: strings.TrimSpace(providerName),
		Name:     strings.TrimSpace(name),
	}
	if spec.Role == "" {
		return ParticipantSpec{}, fmt.Errorf("invalid participant %q: missing role", s)
	}
	return spec, nil
}

func (p ParticipantSpec) String() string {
	s := p.Role
	if p.Provider != "" {
		s += "=" + p.Provider
	}
	if p.Name != "" {
		s += ":" + p.Name
	}
	return s
}

// Request describes a discussion to run.
type Request struct {
	OwnerID      string            `json:"owner_id,omitempty"`
	Title        string            `json:"title,omitempty"`
	Question     string            `json:"question"`
	Participants []ParticipantSpec `json:"participants"`
}

func (r Request) owner() string {
	if r.OwnerID == "" {
		return DefaultOwner
	}
	return r.OwnerID
}

func (r Request) title() string {
	if r.Title != "" {
		return r.Title
	}
	q := strings.Join(strings.Fields(r.Question), " ")
	if utf8.RuneCountInString(q) <= maxTitleRunes {
		return q
	}
	runes := []rune(q)
	return string(runes[:maxTitleRunes-1]) + "…"
}
