package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tourgate/internal/chat"
	"tourgate/internal/config"
	"tourgate/internal/fetch"
	"tourgate/internal/llm"
	"tourgate/internal/logging"
	"tourgate/internal/mcp"
	"tourgate/internal/quota"
	"tourgate/internal/server"
	"tourgate/internal/tools"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var mcpMode string
	var port int

	root := &cobra.Command{
		Use:     "tourgate",
		Short:   "AI tool-invocation gateway for the island tourism dashboard",
		Version: version,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if mcpMode != "" {
				cfg.MCP.Mode = mcpMode
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			return runServe(cmd, cfg)
		},
	}
	serve.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	serve.Flags().StringVar(&mcpMode, "mcp-mode", "", "protocol transport mode: stateful or stateless")
	serve.Flags().IntVarP(&port, "port", "p", 0, "listen port override")

	root.AddCommand(serve)
	return root
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	logger := logging.NewComponentLogger("Main")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := tools.NewRegistry()
	fetcher := fetch.NewClient(cfg.Upstream, logging.NewComponentLogger("Fetch"))
	executor := tools.NewExecutor(registry, fetcher, logging.NewComponentLogger("Executor"))

	chatEngine := chat.NewEngine(llm.NewOpenAIClient(cfg.LLM), executor, cfg.Chat, cfg.LLM)
	quotaLazy := quota.NewLazy(cfg.Quota)

	var sessions mcp.SessionStore
	if cfg.MCP.Stateful() {
		sessions = mcp.NewMemorySessionStore()
	}
	mcpHandler := mcp.NewHandler(executor, cfg.MCP.Stateful(), version, fetcher.ResolvedOrigin(), sessions)

	srv := server.New(cfg, chatEngine, fetcher, mcpHandler, quotaLazy, version)

	logger.Info("tourgate %s starting: %d tools, round cap %d, quota limit %d/%s",
		version, registry.Len(), cfg.Chat.RoundCap, cfg.Quota.Limit, cfg.Quota.Window())

	return srv.Run(ctx)
}
