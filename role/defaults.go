package role

import "github.com/casualjim/symposium/conversation"

const (
	Critic         = "critic"
	Supporter      = "supporter"
	Analyst        = "analyst"
	Innovator      = "innovator"
	Pragmatist     = "pragmatist"
	DevilsAdvocate = "devils_advocate"
)

// Defaults returns the built-in role templates.
func Defaults() []Template {
	return []Template{
		{
			ID:          conversation.RoleFirstSpeaker,
			Name:        "First Speaker",
			Description: "Opens the discussion with a clear, well-reasoned position.",
			Instructions: "You open the discussion. Give a clear, well-structured answer to the question, " +
				"state your position and the main reasons for it. Other participants will respond to you, " +
				"so make your claims specific enough to be examined.",
			SuggestedProvider: "openai",
			Tags:              []string{"opening", "required"},
		},
		{
			ID:          Critic,
			Name:        "Critic",
			Description: "Finds weaknesses, gaps and unstated assumptions.",
			Instructions: "You are the critic. Examine the opening answer carefully. Point out weak arguments, " +
				"missing evidence, unstated assumptions and risks. Be direct but fair, and explain why each " +
				"point matters.",
			SuggestedProvider: "anthropic",
			Tags:              []string{"critique"},
		},
		{
			ID:          Supporter,
			Name:        "Supporter",
			Description: "Strengthens the strongest parts of the opening answer.",
			Instructions: "You are the supporter. Identify the strongest ideas in the opening answer and build " +
				"on them with additional arguments, examples and evidence.",
			SuggestedProvider: "google",
			Tags:              []string{"support"},
		},
		{
			ID:          Analyst,
			Name:        "Analyst",
			Description: "Breaks the question down with data and structure.",
			Instructions: "You are the analyst. Break the question into its components, bring in relevant data, " +
				"trade-offs and causal mechanisms, and say what evidence would change the conclusion.",
			SuggestedProvider: "openai",
			Tags:              []string{"analysis"},
		},
		{
			ID:          Innovator,
			Name:        "Innovator",
			Description: "Proposes unconventional angles and new options.",
			Instructions: "You are the innovator. Look past the obvious framing. Propose unconventional " +
				"approaches, reframings or options nobody has mentioned yet, and sketch how they could work.",
			SuggestedProvider: "anthropic",
			Tags:              []string{"creative"},
		},
		{
			ID:          Pragmatist,
			Name:        "Pragmatist",
			Description: "Focuses on what can actually be done.",
			Instructions: "You are the pragmatist. Focus on feasibility: cost, effort, constraints and concrete " +
				"next steps. Say what you would actually do and in what order.",
			SuggestedProvider: "google",
			Tags:              []string{"practical"},
		},
		{
			ID:          DevilsAdvocate,
			Name:        "Devil's Advocate",
			Description: "Argues the opposite position on purpose.",
			Instructions: "You are the devil's advocate. Argue the strongest possible case against the opening " +
				"answer, even if you do not hold that view, so the discussion tests its conclusions.",
			SuggestedProvider: "openai",
			Tags:              []string{"critique", "contrarian"},
		},
		{
			ID:          conversation.RoleSynthesizer,
			Name:        "Synthesizer",
			Description: "Combines the discussion into a balanced conclusion.",
			Instructions: "You are the synthesizer. Read the whole discussion, reconcile the perspectives, note " +
				"where participants agree and disagree, and give a balanced final conclusion with practical " +
				"recommendations.",
			SuggestedProvider: "anthropic",
			Tags:              []string{"closing"},
		},
	}
}
