package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"edconnekt/internal/audit"
	audithandler "edconnekt/internal/audit/handler"
	auditpg "edconnekt/internal/audit/store/postgres"
	auditremote "edconnekt/internal/audit/store/remote"
	"edconnekt/internal/classe"
	"edconnekt/internal/eleve"
	"edconnekt/internal/etablissement"
	"edconnekt/internal/events"
	"edconnekt/internal/mutation"
	"edconnekt/internal/platform/config"
	"edconnekt/internal/platform/httpserver"
	"edconnekt/internal/platform/logger"
	"edconnekt/internal/platform/metrics"
	"edconnekt/internal/principal"
	"edconnekt/internal/ressource"
	httptransport "edconnekt/internal/transport/http"
	"edconnekt/internal/utilisateur"
	"edconnekt/pkg/platform/tx"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		log.Error("database unreachable", "error", err, "url", cfg.DatabaseURL)
		os.Exit(1)
	}
	cancel()

	m := metrics.New()
	runner := tx.NewSQLRunner(db)

	// Audit sink: the local store writes inside the mutation transaction;
	// the remote one posts to the central audit service and only local
	// deployments can serve the read API.
	var (
		sink        audit.Sink
		auditReader audit.Reader
	)
	switch cfg.AuditSink {
	case "remote":
		sink = auditremote.New(cfg.AuditServiceURL)
		log.Info("audit sink: remote", "url", cfg.AuditServiceURL)
	default:
		store := auditpg.New(db)
		sink = store
		auditReader = store
		log.Info("audit sink: local")
	}
	recorder := audit.NewRecorder(sink)

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.KafkaBrokers, log, m)
		if err != nil {
			log.Error("kafka client", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		publisher = kafka
		log.Info("event publisher: kafka", "brokers", cfg.KafkaBrokers)
	} else {
		log.Warn("no kafka brokers configured, events disabled")
	}

	resolver := principal.NewResolver(
		&principal.JWKSFetcher{URL: cfg.JWKSURL},
		cfg.Issuer,
		cfg.Audience,
		principal.WithLogger(log),
		principal.WithTimeout(config.KeyFetchTimeout),
	)

	orchestrate := func(service string) *mutation.Orchestrator {
		return mutation.New(service, runner, recorder, publisher,
			mutation.WithLogger(log),
			mutation.WithMetrics(m),
		)
	}

	etabService := etablissement.NewService(
		etablissement.NewPostgres(db),
		orchestrate(etablissement.ServiceName),
		etablissement.WithLogger(log),
		etablissement.WithAuditReader(auditReader),
	)
	classeService := classe.NewService(
		classe.NewPostgres(db),
		orchestrate(classe.ServiceName),
		classe.WithLogger(log),
		classe.WithEtablissementDirectory(etabService),
		classe.WithAuditReader(auditReader),
	)
	eleveService := eleve.NewService(
		eleve.NewPostgres(db),
		orchestrate(eleve.ServiceName),
		eleve.WithLogger(log),
		eleve.WithClasseDirectory(classeService),
		eleve.WithAuditReader(auditReader),
	)
	utilisateurService := utilisateur.NewService(
		utilisateur.NewPostgres(db),
		orchestrate(utilisateur.ServiceName),
		utilisateur.WithLogger(log),
		utilisateur.WithAuditReader(auditReader),
	)
	ressourceService := ressource.NewService(
		ressource.NewPostgres(db),
		orchestrate(ressource.ServiceName),
		ressource.WithLogger(log),
	)

	handlers := httptransport.Handlers{
		Etablissement: etablissement.NewHandler(etabService, log),
		Classe:        classe.NewHandler(classeService, log),
		Eleve:         eleve.NewHandler(eleveService, log),
		Utilisateur:   utilisateur.NewHandler(utilisateurService, log),
		Ressource:     ressource.NewHandler(ressourceService, log),
	}
	if auditReader != nil {
		handlers.Audit = audithandler.New(auditReader, log)
	}

	router := httptransport.NewRouter(resolver, handlers, log)
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr, "service", cfg.ServiceName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
