/*
Package openai implements the openai-style provider.Adapter on top of the
official openai-go client. Any backend that speaks the Chat Completions wire
format (OpenAI, Grok, DeepSeek, local gateways) can be reached by pointing the
adapter at its base URL.

# Design Decisions

  - SDK transport: requests go through openai-go, with the client's own retry
    loop disabled so provider.Resilient stays the only retry layer
  - Instructions as system message: the role instruction is prepended to the
    history as a system message on every call
  - Typed failures: API errors become *provider.StatusError and network
    errors *provider.TransportError

# Usage

	adapter := openai.New(provider.Config{
		Name:    "openai",
		Model:   "gpt-4o-mini",
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Enabled: true,
	})

	gen := openai.NewGenerator(cfg, provider.WithPolicy(policy))
	text, err := gen.GenerateResponse(ctx, history, "You are the critic.")

Extra request options (organization, custom HTTP client, headers) are passed
through to the SDK:

	adapter := openai.New(cfg, option.WithOrganization("org-id"))
*/
package openai
