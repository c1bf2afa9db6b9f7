package conversation

import (
	"errors"
	"fmt"
)

// Well-known role identifiers that the discussion protocol treats specially.
const (
	RoleFirstSpeaker = "first_speaker"
	RoleSynthesizer  = "synthesizer"
)

var (
	ErrInsufficientParticipants = errors.New("a discussion needs at least two participants")
	ErrMissingFirstSpeaker      = errors.New("a discussion needs exactly one first_speaker participant")
	ErrMultipleFirstSpeakers    = errors.New("only one first_speaker participant is allowed")
	ErrMultipleSynthesizers     = errors.New("only one synthesizer participant is allowed")
)

// Participant is a (role, provider) binding active within one discussion.
type Participant struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	Name         string `json:"name"`
	Provider     string `json:"provider"`
	Instructions string `json:"instructions"`
	Active       bool   `json:"active"`
}

// IsFirstSpeaker reports whether the participant leads the discussion.
func (p Participant) IsFirstSpeaker() bool {
	return p.Role == RoleFirstSpeaker
}

// IsSynthesizer reports whether the participant closes the discussion.
func (p Participant) IsSynthesizer() bool {
	return p.Role == RoleSynthesizer
}

func (p Participant) String() string {
	return fmt.Sprintf("%s (%s via %s)", p.Name, p.Role, p.Provider)
}

// ValidateParticipants checks the structural invariants of a participant set:
// at least two participants, exactly one first speaker and at most one
// synthesizer. All violations are reported together.
func ValidateParticipants(participants []Participant) error {
	var err error
	if len(participants) < 2 {
		err = errors.Join(err, ErrInsufficientParticipants)
	}

	var firstSpeakers, synthesizers int
	for _, p := range participants {
		switch {
		case p.IsFirstSpeaker():
			firstSpeakers++
		case p.IsSynthesizer():
			synthesizers++
		}
	}

	switch {
	case firstSpeakers == 0:
		err = errors.Join(err, ErrMissingFirstSpeaker)
	case firstSpeakers > 1:
		err = errors.Join(err, ErrMultipleFirstSpeakers)
	}
	if synthesizers > 1 {
		err = errors.Join(err, ErrMultipleSynthesizers)
	}
	return err
}
