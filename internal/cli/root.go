// Package cli implements the memctl CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/personaflow/tieredmem/memory"
	mockembed "github.com/personaflow/tieredmem/memory/embedder/mock"
	"github.com/personaflow/tieredmem/memory/embedder/remote"
	"github.com/personaflow/tieredmem/memory/llm"
	mockllm "github.com/personaflow/tieredmem/memory/llm/mock"
	filestore "github.com/personaflow/tieredmem/memory/store/file"
	"github.com/personaflow/tieredmem/memory/store/sqlite"
)

var (
	dataDir   string
	storeFlag string
	userFlag  string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "Tiered memory for LLM agents",
	Long:  "Inspect and drive an agent's tiered memory: ingest conversation events, force promotion, query retrieval, and view the long-term cognitive model.",
}

func init() {
	godotenv.Load()

	RootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default: $MEMCTL_DATA or ~/.memctl)")
	RootCmd.PersistentFlags().StringVarP(&storeFlag, "store", "s", "file", "Storage backend: file or sqlite")
	RootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "default", "User ID")
}

func getDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if env := os.Getenv("MEMCTL_DATA"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memctl")
}

func openStore() (memory.Store, error) {
	dir := getDataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	switch storeFlag {
	case "file":
		return filestore.New(dir)
	case "sqlite":
		return sqlite.New(filepath.Join(dir, "memory.db"))
	default:
		return nil, fmt.Errorf("unknown store %q (want file or sqlite)", storeFlag)
	}
}

// openAdapter picks the LLM adapter from the environment. With
// ANTHROPIC_API_KEY set it talks to the real API, otherwise it falls back to
// the deterministic mock so the CLI stays usable offline.
func openAdapter() memory.Adapter {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return mockllm.New()
	}
	client := anthropic.NewClient()

	var embedder memory.Embedder
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		embedder = remote.NewOpenAI("", key, "", 0)
	} else if os.Getenv("OLLAMA_HOST") != "" {
		embedder = remote.NewOllama("")
	} else {
		embedder = mockembed.New()
	}
	return llm.New(&client, embedder, nil)
}

// openCoordinator wires a coordinator without a vector index: the index is
// in-process only, so a fresh one per invocation would shadow the persisted
// embeddings that deep search falls back to.
func openCoordinator() (*memory.Coordinator, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	return memory.NewCoordinator(nil, store, openAdapter())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
