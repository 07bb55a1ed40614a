package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"coreledger/internal/audit"
	"coreledger/internal/config"
	"coreledger/internal/db"
	"coreledger/internal/handlers"
	"coreledger/internal/identifier"
	"coreledger/internal/ledger"
	"coreledger/internal/store"
	"coreledger/internal/store/memory"
	"coreledger/internal/stream"
)

// spoolFlushInterval is how often undelivered audit events are retried.
const spoolFlushInterval = 30 * time.Second

func main() {
	cfg := config.Load()
	hub := stream.NewHub()

	spool, err := audit.OpenSpool(cfg.AuditSpoolPath)
	if err != nil {
		log.Fatalf("failed to open audit spool: %v", err)
	}
	defer spool.Close()

	var (
		accounts    ledger.AccountStore
		journal     journalStore
		auditStore  audit.Store
		ids         *identifier.Generator
		auditReader handlers.AuditReader
		acctReader  handlers.AccountReader
	)
	switch cfg.StorageDriver {
	case "memory":
		log.Println("running with in-memory storage, state is not durable")
		memAccounts := memory.NewAccountStore()
		ids = identifier.NewGenerator(identifier.NewMemoryAllocator())
		memJournal := memory.NewJournal(ids)
		memAudit := memory.NewAuditLog()
		accounts, journal = memAccounts, memJournal
		auditStore, auditReader = memAudit, memAudit
		acctReader = memAccounts
	default:
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}
		defer database.Close()
		pgAccounts := store.NewAccountStore(database)
		ids = identifier.NewGenerator(store.NewSequenceStore(database))
		pgJournal := store.NewJournalStore(database, ids)
		pgAudit := store.NewAuditStore(database)
		accounts, journal = pgAccounts, pgJournal
		auditStore, auditReader = pgAudit, pgAudit
		acctReader = pgAccounts
	}

	recorder := audit.NewRecorder(auditStore, spool, hub)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go recorder.RetryLoop(ctx, spoolFlushInterval)

	engine := ledger.New(accounts, journal, recorder, ids)
	handler := handlers.New(cfg, engine, acctReader, journal, auditReader, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("ledger API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// journalStore is the union of what the engine and the read handlers need
// from the journal; both backends satisfy it.
type journalStore interface {
	ledger.Journal
	handlers.JournalReader
}
