package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/abrefacil/checkout-server/billing"
	"github.com/abrefacil/checkout-server/checkout"
	"github.com/abrefacil/checkout-server/devauth"
	"github.com/abrefacil/checkout-server/docstore"
	"github.com/abrefacil/checkout-server/formations"
	fakeformationrepo "github.com/abrefacil/checkout-server/formations/repofake"
	"github.com/abrefacil/checkout-server/internal/config"
	"github.com/abrefacil/checkout-server/leads"
	fakeleadrepo "github.com/abrefacil/checkout-server/leads/repofake"
	"github.com/abrefacil/checkout-server/postgres"
	"github.com/abrefacil/checkout-server/qualifications"
	fakequalificationrepo "github.com/abrefacil/checkout-server/qualifications/repofake"
	"github.com/abrefacil/checkout-server/server"
	"github.com/abrefacil/checkout-server/session"
	"github.com/abrefacil/checkout-server/subscriptions"
	fakesubscriptionrepo "github.com/abrefacil/checkout-server/subscriptions/repofake"
)

const (
	devUserEmail    = "dev@example.com"
	devUserPassword = "devpassword"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	handler, cleanup, err := buildServer(c)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(server)
	waitForStopSignal()
	returnError = shutdown(server)
	return returnError
}

// buildServer wires the whole stack from config. The returned cleanup
// closes everything the wiring opened, in reverse order.
func buildServer(c config.Config) (http.Handler, func(), error) {
	ctx := context.Background()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store := openSessionStore(c)
	if closer, ok := store.(interface{ Close() error }); ok {
		closers = append(closers, func() { _ = closer.Close() })
	}

	reader := session.NewReader(store, c.GetSessionStorageKey(), c.GetProjectRef())
	backup := session.NewBackup(store, reader)
	state := session.NewState(reader, backup)

	slotKey := reader.ResolveKey()
	if slotKey == "" {
		slotKey = "sb-local-auth-token"
	}

	var devAuthHandler http.Handler
	authBaseURL := c.GetAuthBaseURL()
	if authBaseURL == "" {
		svc := devauth.New(devauth.Config{Secret: c.GetDevAuthSecret()})
		if _, err := svc.AddUser(devUserEmail, devUserPassword); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("seeding dev auth user: %w", err)
		}
		devAuthHandler = devauth.Handler(svc)
		// The client talks to the embedded provider through our own
		// listener, so token grants take the same path real ones would.
		authBaseURL = "http://localhost" + c.GetPort() + "/auth/v1"
		log.Printf("Embedded auth provider at /auth/v1 (%s / %s)\n", devUserEmail, devUserPassword)
	}

	client := session.NewProviderClient(session.ProviderConfig{
		BaseURL:  authBaseURL,
		ClientID: c.GetAuthClientID(),
		SlotKey:  slotKey,
	}, store)
	closers = append(closers, state.Bind(ctx, client))

	resolver := session.NewResolver(state, reader, backup, client, session.ResolverConfig{})

	leadRepo, qualRepo, formRepo, subRepo, err := buildRepos(ctx, c, &closers)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	billingSvc := billing.NewService(billing.NewAsaasClient(c.GetAsaasAPIKey(), c.IsAsaasSandbox()))

	var objects docstore.ObjectStore
	if c.GetStorageBaseURL() != "" {
		objects = docstore.NewBucketStore(docstore.BucketConfig{
			BaseURL:    c.GetStorageBaseURL(),
			ServiceKey: c.GetStorageServiceKey(),
			Bucket:     c.GetDocumentsBucket(),
		})
	} else {
		log.Printf("No storage backend configured, documents are held in memory\n")
		objects = docstore.NewMemoryObjectStore()
	}

	checkoutSvc := checkout.NewService(resolver, leadRepo, qualRepo, formRepo, subRepo, billingSvc, docstore.NewUploader(objects))
	return server.New(c, checkoutSvc, resolver, state, devAuthHandler), cleanup, nil
}

// openSessionStore prefers the persistent store; a session that
// survives restarts is the whole point of the storage slot. Memory is
// the fallback when the data folder is unusable.
func openSessionStore(c config.Config) session.Store {
	store, err := session.OpenBadgerStore(c.GetDataFolder())
	if err != nil {
		log.Printf("Session store unavailable (%s), sessions will not survive restarts\n", err)
		return session.NewMemoryStore()
	}
	return store
}

func buildRepos(ctx context.Context, c config.Config, closers *[]func()) (leads.Repo, qualifications.Repo, formations.Repo, subscriptions.Repo, error) {
	databaseURL := c.GetDatabaseURL()
	if databaseURL == "" {
		log.Printf("No DATABASE_URL configured, using in-memory repositories\n")
		return fakeleadrepo.NewFakeLeadRepo(),
			fakequalificationrepo.NewFakeQualificationRepo(),
			fakeformationrepo.NewFakeFormationRepo(),
			fakesubscriptionrepo.NewFakeSubscriptionRepo(),
			nil
	}

	adapter, err := postgres.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := adapter.Migrate(ctx); err != nil {
		adapter.Close()
		return nil, nil, nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	*closers = append(*closers, adapter.Close)
	return adapter.Leads(), adapter.Qualifications(), adapter.Formations(), adapter.Subscriptions(), nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
