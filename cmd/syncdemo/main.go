package main

import (
	"chat-sync/domain"
	"chat-sync/infrastructure/broker"
	"chat-sync/infrastructure/storage"
	"chat-sync/internal"
	"chat-sync/projection"
	"chat-sync/runtime"
	"chat-sync/runtime/workers"
	"chat-sync/services"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync demo terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the store, the view and a simulated remote participant, then renders every update.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	var demo DemoConfig
	if _, err := env.UnmarshalFromEnviron(&demo); err != nil {
		return exitConfig, fmt.Errorf("demo config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	self := domain.ParticipantID(config.SelfID)
	remote := domain.ParticipantID(demo.RemoteID)

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	events := broker.NewBroker(log, config.EventBufferSize, config.SinkTimeout)
	store := storage.NewMessageStore(db, storage.NewSearchIndex(blugeWriter, config.SearchLimit()),
		events, log, self, time.Now)

	identity := services.NewIdentityDirectory()
	identity.Register(self, demo.SelfName)
	identity.Register(remote, demo.RemoteName)

	// 3. Runtime
	sup := workers.NewSupervisor(log, config.RestartInterval)
	conversationsChanged := projection.NewSignal()
	conversations := runtime.NewConversations(conversationsChanged)
	view := runtime.NewConversationView(log, store, identity, conversations, sup, config.ViewConfig())
	chat := services.NewChatService(log, store, conversations, view, config.MaxContentLength)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	view.Start(ctx)
	defer view.Close()

	// The backend needs a moment before it accepts subscriptions
	time.AfterFunc(demo.ReadyDelay, store.MarkReady)

	info, err := chat.ChatWith(ctx, remote)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open conversation: %w", err)
	}
	if err := chat.SendMessage(ctx, info.ID(), []string{"hi " + demo.RemoteName + "!"}, nil); err != nil {
		return exitRuntime, fmt.Errorf("failed to send greeting: %w", err)
	}

	// 5. Simulation & rendering until stopped
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(" chatting with " + demo.RemoteName + " "))
	simulation := workers.NewSupervisor(log, config.RestartInterval)
	simulation.Add(
		&RemoteParticipant{
			log:            log.With("participant_id", remote.String()),
			store:          store,
			participant:    remote,
			conversationID: info.ID(),
			interval:       demo.RemoteInterval,
			disconnectRate: demo.DisconnectRate,
		},
		&Renderer{
			out:           os.Stdout,
			view:          view,
			conversations: conversations,
			changed:       conversationsChanged,
			identity:      identity,
			tail:          demo.Tail,
		},
	).Run(ctx)

	log.Info("Shutting down gracefully...")
	return exitOK, nil
}
