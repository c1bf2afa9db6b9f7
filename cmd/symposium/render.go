package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/casualjim/symposium/events"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

var stageTitles = map[int]string{
	1: "Opening",
	2: "Responses",
	3: "Synthesis",
}

type printer struct {
	w    io.Writer
	glam *glamour.TermRenderer
}

func newPrinter(w io.Writer, options ...glamour.TermRendererOption) (*printer, error) {
	if len(options) == 0 {
		options = []glamour.TermRendererOption{glamour.WithAutoStyle(), glamour.WithWordWrap(100)}
	}
	glam, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return nil, err
	}
	return &printer{w: w, glam: glam}, nil
}

// Print writes events as they arrive until the stream is closed, a terminal
// event was printed or ctx is done.
func (p *printer) Print(ctx context.Context, stream <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-stream:
			if !ok {
				return nil
			}
			if done := p.event(evt); done {
				return nil
			}
		}
	}
}

func (p *printer) event(evt events.Event) bool {
	switch e := evt.(type) {
	case events.DiscussionStarted:
		fmt.Fprintf(p.w, "%s %s\n", color.CyanString("Question:"), e.Question)
		for _, part := range e.Participants {
			fmt.Fprintf(p.w, "  %s\n", color.HiBlackString(part.String()))
		}
	case events.RoundStarted:
		fmt.Fprintf(p.w, "\n%s\n", color.CyanString("── Stage %d: %s ──", e.Stage, stageTitles[e.Stage]))
	case events.FirstSpeakerRetry:
		fmt.Fprintf(p.w, "%s attempt %d/%d failed: %s\n",
			color.YellowString("retry"), e.Attempt, e.MaxAttempts, e.Reason)
	case events.MessageReceived:
		meta := e.Message.Metadata
		fmt.Fprintf(p.w, "%s %s\n",
			color.MagentaString(meta.ParticipantName),
			color.HiBlackString("(%s via %s)", meta.ParticipantRole, e.Message.Provider))
		fmt.Fprintln(p.w, p.markdown(e.Message.Content))
	case events.DiscussionCompleted:
		fmt.Fprintf(p.w, "%s %d messages\n", color.GreenString("Discussion completed:"), e.MessageCount)
		return true
	case events.DiscussionError:
		fmt.Fprintf(p.w, "%s %s\n", color.RedString("Discussion failed:"), e.Error)
		return true
	}
	return false
}

func (p *printer) markdown(content string) string {
	out, err := p.glam.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
