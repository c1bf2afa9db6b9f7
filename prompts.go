package symposium

import (
	"fmt"
	"strings"

	"github.com/casualjim/symposium/conversation"
)

// Prompter builds the history each stage sends to a participant. The
// participant's role instructions travel separately as system instructions.
type Prompter interface {
	// Open is sent to the first speaker.
	Open(question string) []conversation.Message
	// Respond is sent to every middle participant. prior holds the answers
	// given so far, in transcript order.
	Respond(question string, prior []conversation.Message, p conversation.Participant) []conversation.Message
	// Synthesize is sent to the synthesizer with the full transcript.
	Synthesize(question string, transcript []conversation.Message, p conversation.Participant) []conversation.Message
}

// DefaultPrompts is the Prompter used unless WithPrompts overrides it.
type DefaultPrompts struct{}

var _ Prompter = DefaultPrompts{}

func (DefaultPrompts) Open(question string) []conversation.Message {
	return []conversation.Message{conversation.NewUserMessage(question)}
}

func (DefaultPrompts) Respond(question string, prior []conversation.Message, p conversation.Participant) []conversation.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "The question under discussion is:\n\n%s\n\n", question)
	b.WriteString("The discussion so far:\n\n")
	for _, m := range prior {
		writeContribution(&b, m)
	}
	fmt.Fprintf(&b, "Respond as the %s. Engage with the points above directly instead of restating them.", p.Name)
	return []conversation.Message{conversation.NewUserMessage(b.String())}
}

func (DefaultPrompts) Synthesize(question string, transcript []conversation.Message, p conversation.Participant) []conversation.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "You are closing a discussion between %d participants.\n\n", countSpeakers(transcript))
	fmt.Fprintf(&b, "## Question\n\n%s\n\n## Contributions\n\n", question)
	for i, m := range transcript {
		fmt.Fprintf(&b, "%d. ", i+1)
		writeContribution(&b, m)
	}
	b.WriteString("## Task\n\n")
	b.WriteString("Write the final synthesis: where the participants agree, where they disagree and why, ")
	b.WriteString("and a balanced conclusion that answers the question.")
	return []conversation.Message{conversation.NewUserMessage(b.String())}
}

// countSpeakers counts distinct participants; a speaker may answer in
// several rounds.
func countSpeakers(transcript []conversation.Message) int {
	seen := make(map[string]struct{}, len(transcript))
	for _, m := range transcript {
		seen[m.Metadata.ParticipantID] = struct{}{}
	}
	return len(seen)
}

func writeContribution(b *strings.Builder, m conversation.Message) {
	name := m.Metadata.ParticipantName
	if name == "" {
		name = "Participant"
	}
	fmt.Fprintf(b, "### %s (%s)\n\n%s\n\n", name, m.Metadata.ParticipantRole, strings.TrimSpace(m.Content))
}
