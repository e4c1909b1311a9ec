package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Embedding configuration (OpenAI-compatible protocol).
	// All providers (openai, siliconflow, ollama, dashscope) use the same config.
	AIEmbeddingProvider   string
	AIEmbeddingModel      string
	AIEmbeddingAPIKey     string
	AIEmbeddingBaseURL    string
	AIEmbeddingDimensions int
	AIEmbeddingTimeout    int // per-request timeout in seconds

	// Reranker LLM configuration. Optional; the deterministic rule-based
	// balancer is the default strategy.
	AIRerankProvider string
	AIRerankModel    string
	AIRerankAPIKey   string
	AIRerankBaseURL  string

	// Retrieval and balancing knobs.
	TopKRetrieval int    // candidates fetched from the index before balancing
	FinalCount    int    // recommendations returned to the caller
	KeywordsFile  string // optional YAML override for the intent lexicon

	// Data files.
	CatalogFile   string // catalog CSV
	TrainFile     string // labeled train queries CSV
	TestFile      string // unlabeled test queries CSV
	IndexSnapshot string // vector index snapshot path

	Mode        string
	Addr        string
	Port        int
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string
}

// Provider default configurations for embeddings.
// Used when the base URL is not explicitly set.
var embeddingProviderDefaults = map[string]struct {
	BaseURL    string
	Model      string
	Dimensions int
}{
	"openai": {
		BaseURL:    "https://api.openai.com/v1",
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
	},
	"siliconflow": {
		BaseURL:    "https://api.siliconflow.cn/v1",
		Model:      "BAAI/bge-m3",
		Dimensions: 1024,
	},
	"dashscope": {
		BaseURL:    "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:      "text-embedding-v3",
		Dimensions: 1024,
	},
	"ollama": {
		BaseURL:    "http://localhost:11434/v1",
		Model:      "all-minilm",
		Dimensions: 384,
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsRerankerEnabled returns true if an LLM reranker API key is configured.
func (p *Profile) IsRerankerEnabled() bool {
	return p.AIRerankAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.AIEmbeddingProvider = getEnvOrDefault("SHLREC_AI_EMBEDDING_PROVIDER", "siliconflow")
	p.AIEmbeddingModel = getEnvOrDefault("SHLREC_AI_EMBEDDING_MODEL", "")
	p.AIEmbeddingAPIKey = getEnvOrDefault("SHLREC_AI_EMBEDDING_API_KEY", "")
	p.AIEmbeddingBaseURL = getEnvOrDefault("SHLREC_AI_EMBEDDING_BASE_URL", "")
	p.AIEmbeddingDimensions = getEnvOrDefaultInt("SHLREC_AI_EMBEDDING_DIMENSIONS", 0)
	p.AIEmbeddingTimeout = getEnvOrDefaultInt("SHLREC_AI_EMBEDDING_TIMEOUT_SECONDS", 30)

	if _, ok := embeddingProviderDefaults[p.AIEmbeddingProvider]; !ok {
		slog.Warn("unknown embedding provider, using default: siliconflow", "provider", p.AIEmbeddingProvider)
		p.AIEmbeddingProvider = "siliconflow"
	}
	if defaults, ok := embeddingProviderDefaults[p.AIEmbeddingProvider]; ok {
		if p.AIEmbeddingBaseURL == "" {
			p.AIEmbeddingBaseURL = defaults.BaseURL
		}
		if p.AIEmbeddingModel == "" {
			p.AIEmbeddingModel = defaults.Model
		}
		if p.AIEmbeddingDimensions == 0 {
			p.AIEmbeddingDimensions = defaults.Dimensions
		}
	}

	// Reranker configuration
	p.AIRerankProvider = getEnvOrDefault("SHLREC_AI_RERANK_PROVIDER", "siliconflow")
	p.AIRerankModel = getEnvOrDefault("SHLREC_AI_RERANK_MODEL", "Qwen/Qwen2.5-7B-Instruct")
	p.AIRerankAPIKey = getEnvOrDefault("SHLREC_AI_RERANK_API_KEY", "")
	p.AIRerankBaseURL = getEnvOrDefault("SHLREC_AI_RERANK_BASE_URL", "https://api.siliconflow.cn/v1")

	// Retrieval configuration
	p.TopKRetrieval = getEnvOrDefaultInt("SHLREC_TOP_K_RETRIEVAL", 20)
	p.FinalCount = getEnvOrDefaultInt("SHLREC_FINAL_COUNT", 10)
	p.KeywordsFile = getEnvOrDefault("SHLREC_KEYWORDS_FILE", "")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Data == "" {
		p.Data = "data"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("shlrec_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("DSN is required for the postgres driver")
	}

	if p.CatalogFile == "" {
		p.CatalogFile = filepath.Join(dataDir, "shl_catalog.csv")
	}
	if p.TrainFile == "" {
		p.TrainFile = filepath.Join(dataDir, "train_queries.csv")
	}
	if p.TestFile == "" {
		p.TestFile = filepath.Join(dataDir, "test_queries.csv")
	}
	if p.IndexSnapshot == "" {
		p.IndexSnapshot = filepath.Join(dataDir, "catalog_index.bin")
	}

	return nil
}
