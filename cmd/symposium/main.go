// Command symposium runs one staged discussion from the command line.
//
//	symposium -q "Is remote work more productive?" \
//	    -p first_speaker=openai -p critic=anthropic -p synthesizer=google
//
// Providers are configured through the environment or a .env file, see
// package config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/casualjim/symposium"
	"github.com/casualjim/symposium/config"
	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/events"
	"github.com/casualjim/symposium/pkg/natsx"
	"github.com/casualjim/symposium/pkg/slogx"
	"github.com/casualjim/symposium/provider/registry"
	"github.com/casualjim/symposium/role"
	"github.com/casualjim/symposium/store"
	"github.com/casualjim/symposium/store/sqlite"
	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

// participantsFlag collects repeated -p values.
type participantsFlag []symposium.ParticipantSpec

func (p *participantsFlag) String() string {
	parts := make([]string, len(*p))
	for i, s := range *p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

func (p *participantsFlag) Set(value string) error {
	spec, err := symposium.ParseParticipantSpec(value)
	if err != nil {
		return err
	}
	*p = append(*p, spec)
	return nil
}

func defaultParticipants() []symposium.ParticipantSpec {
	return []symposium.ParticipantSpec{
		{Role: conversation.RoleFirstSpeaker},
		{Role: role.Critic},
		{Role: conversation.RoleSynthesizer},
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

func main() {
	var (
		question     string
		owner        string
		title        string
		envFile      string
		raw          bool
		debug        bool
		listRoles    bool
		listEnabled  bool
		participants participantsFlag
	)
	flag.StringVar(&question, "q", "", "question to discuss")
	flag.Var(&participants, "p", "participant as role[=provider[:name]], repeatable")
	flag.StringVar(&owner, "owner", symposium.DefaultOwner, "owner id the conversation is stored under")
	flag.StringVar(&title, "title", "", "conversation title (defaults to the question)")
	flag.StringVar(&envFile, "env", ".env", "environment file to load")
	flag.BoolVar(&raw, "raw", false, "dump the final conversation")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.BoolVar(&listRoles, "roles", false, "list the available roles and exit")
	flag.BoolVar(&listEnabled, "providers", false, "list the configured providers and exit")
	flag.Parse()

	setupLogging(debug)

	if err := run(options{
		question:     question,
		owner:        owner,
		title:        title,
		envFile:      envFile,
		raw:          raw,
		listRoles:    listRoles,
		listEnabled:  listEnabled,
		participants: participants,
	}); err != nil {
		slog.Error("symposium failed", slogx.Error(err))
		os.Exit(1)
	}
}

type options struct {
	question     string
	owner        string
	title        string
	envFile      string
	raw          bool
	listRoles    bool
	listEnabled  bool
	participants []symposium.ParticipantSpec
}

func run(o options) error {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return err
	}
	providers := registry.New(cfg.Providers, cfg.Retry)
	catalog := role.Default()

	switch {
	case o.listRoles:
		for _, tpl := range catalog.List() {
			fmt.Printf("%-16s %s\n", color.CyanString(tpl.ID), tpl.Description)
		}
		return nil
	case o.listEnabled:
		usable := providers.ListEnabled()
		for _, pc := range providers.Configs() {
			state := color.YellowString("unavailable")
			if slices.Contains(usable, pc.Name) {
				state = color.GreenString("ready")
			}
			fmt.Printf("%-16s %-10s %-24s %s\n", color.CyanString(pc.Name), pc.Format, pc.Model, state)
		}
		return nil
	}

	if strings.TrimSpace(o.question) == "" {
		flag.Usage()
		return symposium.ErrEmptyQuestion
	}
	if len(o.participants) == 0 {
		o.participants = defaultParticipants()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer closeStore()

	console := events.NewChannel(64)
	sinks := []events.Sink{console, events.Log(slog.Default())}
	if cfg.NATSURL != "" {
		conn, err := natsx.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer conn.Drain() //nolint:errcheck
		sinks = append(sinks, events.NATS(conn, events.DefaultSubjectPrefix))
	}

	orch := symposium.New(providers, catalog,
		symposium.WithStore(st),
		symposium.WithSink(sinks...),
		symposium.WithPacing(cfg.StagePacing),
		symposium.WithFirstSpeakerRetry(cfg.FirstSpeakerAttempts, cfg.FirstSpeakerDelay),
	)

	p, err := newPrinter(os.Stdout)
	if err != nil {
		return err
	}
	printed := make(chan error, 1)
	go func() { printed <- p.Print(ctx, console.C()) }()

	conv, runErr := orch.Start(ctx, symposium.Request{
		OwnerID:      o.owner,
		Title:        o.title,
		Question:     o.question,
		Participants: o.participants,
	})
	console.Close()
	if err := <-printed; err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("failed to print discussion", slogx.Error(err))
	}

	if o.raw && conv != nil {
		pp.Println(conv)
	}
	return runErr
}

func openStore(dsn string) (store.Store, func(), error) {
	if dsn == "" {
		return store.NewMemory(), func() {}, nil
	}
	db, err := sqlite.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			slog.Warn("failed to close store", slogx.Error(err))
		}
	}, nil
}
