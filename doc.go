/*
Package symposium runs structured discussions between language models hosted by
different providers.

Every participant binds a role from the role catalog to a provider from the
provider registry. A discussion moves through three stages:

  - Stage 1: the first speaker answers the question. This stage is retried as
    a whole on top of the provider's own retries. The discussion fails when no
    opening can be obtained.
  - Stage 2: every other participant, except the synthesizer, responds to the
    opening concurrently. A participant that fails is left out of the
    transcript and the discussion goes on.
  - Stage 3: the synthesizer, when present, closes the discussion with the full
    transcript in view.

The transcript keeps stage order and, within a stage, the order in which
participants were declared, no matter in which order the answers arrive.

# Basic Usage

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	providers := registry.New(cfg.Providers, cfg.Retry)

	orch := symposium.New(providers, role.Default(),
		symposium.WithSink(events.Log(slog.Default())),
	)
	conv, err := orch.Start(ctx, symposium.Request{
		Question: "Is remote work more productive than office work?",
		Participants: []symposium.ParticipantSpec{
			{Role: "first_speaker", Provider: "openai"},
			{Role: "critic", Provider: "anthropic"},
			{Role: "synthesizer", Provider: "google"},
		},
	})

Start blocks until the discussion finished. StartAsync validates the request,
then runs the discussion in the background and returns a Discussion handle
whose progress can be followed through the configured event sinks.

# Persistence and events

Conversations are saved through a store.Store (in memory by default, SQLite
with store/sqlite) and every transition is published to events.Sink values.
Neither a failing store nor a slow sink changes the outcome of a discussion.
*/
package symposium
