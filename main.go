package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inbox-engine/internal/api"
	"inbox-engine/internal/config"
	"inbox-engine/internal/controller"
	"inbox-engine/internal/debug"
	"inbox-engine/internal/models"
	"inbox-engine/internal/outbox"
	"inbox-engine/internal/policy"
	"inbox-engine/internal/rabbitmq"
	"inbox-engine/internal/reconcile"
	"inbox-engine/internal/store"
	"inbox-engine/internal/telemetry"
	"inbox-engine/internal/ws"
)

func main() {
	cfg := config.Load()
	if cfg.UserID == "" {
		log.Fatalf("USER_ID is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, "inbox-engine", cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "inbox.audit", "inbox-engine", cfg.Environment)

	identity := models.Identity{UserID: cfg.UserID, Role: cfg.Role}
	client := api.NewClient(cfg.APIBaseURL, cfg.AuthToken)

	conversations := store.NewConversationStore()
	messages := store.NewMessageStore()
	pipeline := outbox.NewPipeline(client, messages, conversations, identity)
	authority := policy.NewAuthority(cfg.UndoGrace)

	ctrl := controller.New(client, conversations, messages, pipeline, authority, identity, audit, cfg.PageSize, cfg.ToastTTL)
	defer ctrl.Close()

	if err := ctrl.LoadConversations(ctx); err != nil {
		log.Printf("initial conversation load failed: %v", err)
	}

	source := ws.NewEventSource(cfg.WSURL, cfg.AuthToken)
	reconciler := reconcile.New(messages, conversations, ctrl.ActiveConversationID)

	go reconciler.Run(ctx, source.Events())
	go func() {
		if err := source.Run(ctx); err != nil {
			log.Printf("event source stopped: %v", err)
			audit.Emit(context.Background(), cfg.UserID, telemetry.AuditPayload{
				Event:  "ws_disconnect",
				Detail: err.Error(),
			})
		}
	}()

	router := debug.NewRouter(ctrl, cfg.DebugEndpoints)
	server := &http.Server{Addr: cfg.DebugAddr, Handler: router}
	go func() {
		log.Printf("debug server listening on %s", cfg.DebugAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("debug server error: %v", err)
		}
	}()

	<-ctx.Done()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shCtx); err != nil {
		log.Printf("debug server shutdown: %v", err)
	}
}
