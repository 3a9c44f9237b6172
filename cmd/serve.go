package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/tasksense/internal/ai"
	"github.com/josephgoksu/tasksense/internal/insights"
	"github.com/josephgoksu/tasksense/internal/llm"
	"github.com/josephgoksu/tasksense/internal/server"
	"github.com/josephgoksu/tasksense/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the TaskSense API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	config := GetConfig()

	port := config.Server.Port
	if servePort != 0 {
		port = servePort
	}

	st, err := store.NewSQLiteStore(config.Data.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	llmCfg := llm.Config{
		Provider: llm.Provider(config.LLM.Provider),
		Model:    config.LLM.Model,
		APIKey:   config.LLM.APIKey,
		BaseURL:  config.LLM.BaseURL,
	}
	if llmCfg.Model == "" {
		llmCfg.Model = llm.DefaultModelForProvider(string(llmCfg.Provider))
	}

	// A nil generator runs the engine in degraded mode: AI endpoints keep
	// working on fallback values.
	gen, err := llm.NewChatGenerator(cmd.Context(), llmCfg)
	if err != nil {
		return fmt.Errorf("configure LLM: %w", err)
	}
	if gen == nil {
		fmt.Println("⚠️  No LLM credential configured; AI features run in degraded mode")
	}

	svc := insights.New(st, ai.NewEngine(gen))
	srv := server.New(port, st, svc)

	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	srv.Start(&wg, errChan)

	fmt.Printf("🌐 API: http://localhost:%d\n", port)
	fmt.Println("✅ TaskSense is running! Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		fmt.Printf("\n⏹️  Received %v, shutting down...\n", sig)
	case err := <-errChan:
		fmt.Printf("\n❌ Error: %v\n", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("⚠️  Server shutdown error: %v\n", err)
	}

	wg.Wait()
	fmt.Println("✅ TaskSense stopped")
	return nil
}
