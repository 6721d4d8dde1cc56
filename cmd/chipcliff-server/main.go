package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kazz187/chipcliff/internal/chat"
	"github.com/kazz187/chipcliff/internal/classifier"
	"github.com/kazz187/chipcliff/internal/config"
	"github.com/kazz187/chipcliff/internal/dispatch"
	"github.com/kazz187/chipcliff/internal/handler"
	"github.com/kazz187/chipcliff/internal/ledger"
	"github.com/kazz187/chipcliff/internal/llm"
	"github.com/kazz187/chipcliff/pkg/clog"
	"github.com/kazz187/chipcliff/pkg/storage"

	server "github.com/kazz187/chipcliff/internal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var logHandler slog.Handler
	if env.Env == "local" {
		logHandler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		logHandler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(logHandler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Setup the record store
	ledgerStore := ledger.NewStore(store)

	// Setup the classifier
	cls, err := classifier.Load(ctx, classifier.Config{
		ModelDir: env.ClassifierEnv.ModelDir,
		ModelURL: env.ClassifierEnv.ModelURL,
	})
	if err != nil {
		slog.Error("failed to load classifier", "error", err)
		os.Exit(1)
	}

	// Setup the provider gateway
	creds := config.CredentialsFromEnv(&env.ProviderEnv)
	if env.ProviderEnv.CredentialsFile != "" {
		creds, err = config.LoadProviderCredentials(env.ProviderEnv.CredentialsFile, creds)
		if err != nil {
			slog.Error("failed to load provider credentials", "error", err)
			os.Exit(1)
		}
	}
	gateway := llm.NewGateway(env.ProviderEnv.Timeout, providerClients(creds)...)
	if !gateway.Operational() {
		slog.Warn("no language-model providers configured; chat and query enhancement are disabled")
	}
	if env.ProviderEnv.CredentialsFile != "" {
		go func() {
			err := config.WatchProviderCredentials(ctx, env.ProviderEnv.CredentialsFile, config.CredentialsFromEnv(&env.ProviderEnv), func(c config.ProviderCredentials) {
				gateway.Reconfigure(providerClients(c)...)
				slog.Info("provider gateway reconfigured", "providers", gateway.Providers())
			})
			if err != nil {
				slog.Error("credentials watcher stopped", "error", err)
			}
		}()
	}

	// Setup handlers
	coder := handler.NewCoder(env.HandlerEnv.WorkDir)
	researcher := handler.NewResearcher(gateway, enhancerProvider(creds), ledgerStore)
	if env.HandlerEnv.SearchBaseURL != "" {
		researcher = researcher.WithSearchURL(env.HandlerEnv.SearchBaseURL)
	}

	dispatcher, err := dispatch.New(cls, ledgerStore, ledgerStore, coder, researcher)
	if err != nil {
		slog.Error("failed to create dispatcher", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(
		env,
		dispatch.NewServer(dispatcher, ledgerStore),
		chat.NewServer(gateway),
		gateway,
	)

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func providerClients(creds config.ProviderCredentials) []llm.Client {
	var clients []llm.Client
	if creds.OpenAIAPIKey != "" {
		clients = append(clients, llm.NewOpenAIClient(creds.OpenAIAPIKey))
	}
	if creds.AnthropicAPIKey != "" {
		clients = append(clients, llm.NewAnthropicClient(creds.AnthropicAPIKey))
	}
	if creds.DeepSeekAPIKey != "" {
		clients = append(clients, llm.NewDeepSeekClient(creds.DeepSeekAPIKey))
	}
	return clients
}

// enhancerProvider picks the provider the researcher uses for query
// enhancement: OpenAI when available, otherwise any configured one.
func enhancerProvider(creds config.ProviderCredentials) string {
	switch {
	case creds.OpenAIAPIKey != "":
		return llm.ProviderOpenAI
	case creds.DeepSeekAPIKey != "":
		return llm.ProviderDeepSeek
	default:
		return llm.ProviderAnthropic
	}
}
