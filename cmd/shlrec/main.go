package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strangecodee/SHL-TASK/ai"
	"github.com/strangecodee/SHL-TASK/ai/balancer"
	"github.com/strangecodee/SHL-TASK/ai/eval"
	"github.com/strangecodee/SHL-TASK/ai/metrics"
	"github.com/strangecodee/SHL-TASK/ai/vector"
	"github.com/strangecodee/SHL-TASK/dataset"
	"github.com/strangecodee/SHL-TASK/internal/profile"
	"github.com/strangecodee/SHL-TASK/internal/version"
	"github.com/strangecodee/SHL-TASK/server"
	"github.com/strangecodee/SHL-TASK/store"
	"github.com/strangecodee/SHL-TASK/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "shlrec",
	Short: `SHL assessment recommendation service. Maps free-text hiring queries to a balanced shortlist of assessments via semantic search.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// .env is a development convenience; absence is not an error.
		_ = godotenv.Load()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load the catalog, embed every assessment and persist the vector index snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIndex(cmd.Context())
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate Recall@10 on the labeled training queries and print a JSON report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEval(cmd.Context(), viper.GetBool("baseline"))
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Generate the test-set predictions CSV (Query,Assessment_url)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runExport(cmd.Context(), viper.GetString("output"))
	},
}

func buildProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:          viper.GetString("mode"),
		Addr:          viper.GetString("addr"),
		Port:          viper.GetInt("port"),
		Data:          viper.GetString("data"),
		Driver:        viper.GetString("driver"),
		DSN:           viper.GetString("dsn"),
		InstanceURL:   viper.GetString("instance-url"),
		CatalogFile:   viper.GetString("catalog"),
		TrainFile:     viper.GetString("train"),
		TestFile:      viper.GetString("test"),
		IndexSnapshot: viper.GetString("snapshot"),
		Version:       version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return instanceProfile, nil
}

func openStore(ctx context.Context, instanceProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, errors.Wrap(err, "create db driver")
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		storeInstance.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return storeInstance, nil
}

// errNoIndex means the catalog has never been indexed. It is the only
// pipeline init failure `serve` tolerates; configuration errors are fatal.
var errNoIndex = errors.New("no vector index available, run `shlrec index` first")

// loadIndex restores the vector index, preferring the snapshot file and
// falling back to the embeddings persisted in the store.
func loadIndex(ctx context.Context, storeInstance *store.Store, instanceProfile *profile.Profile, model string) (*vector.Index, error) {
	if instanceProfile.IndexSnapshot != "" {
		if index, err := vector.LoadFile(instanceProfile.IndexSnapshot); err == nil {
			slog.Info("vector index loaded from snapshot",
				"path", instanceProfile.IndexSnapshot,
				"entries", index.Len(),
			)
			return index, nil
		} else if !os.IsNotExist(errors.Cause(err)) {
			return nil, err
		}
	}

	embeddings, err := storeInstance.ListAssessmentEmbeddings(ctx, model)
	if err != nil {
		return nil, errors.Wrap(err, "list embeddings")
	}
	if len(embeddings) == 0 {
		return nil, errNoIndex
	}
	entries := make([]vector.Entry, 0, len(embeddings))
	for _, e := range embeddings {
		entries = append(entries, vector.Entry{ID: e.AssessmentID, Vector: e.Vector})
	}
	index, err := vector.Build(entries)
	if err != nil {
		return nil, errors.Wrap(err, "build index from stored embeddings")
	}
	slog.Info("vector index rebuilt from store", "entries", index.Len())
	return index, nil
}

func buildRecommender(ctx context.Context, instanceProfile *profile.Profile, storeInstance *store.Store, m *metrics.Metrics) (*ai.Recommender, error) {
	aiConfig, err := ai.NewConfigFromProfile(instanceProfile)
	if err != nil {
		return nil, err
	}
	if err := aiConfig.Validate(); err != nil {
		return nil, err
	}

	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return nil, err
	}
	index, err := loadIndex(ctx, storeInstance, instanceProfile, aiConfig.Embedding.Model)
	if err != nil {
		return nil, err
	}

	ruleBased := balancer.NewRuleBased(&aiConfig.Balancer)
	var strategy balancer.Strategy = ruleBased
	if reranker := balancer.NewLLMReranker(&aiConfig.Reranker, ruleBased); reranker.IsEnabled() {
		slog.Info("LLM reranker enabled", "model", aiConfig.Reranker.Model)
		strategy = reranker
	}

	return ai.NewRecommender(embedder, index, storeInstance, strategy, m, aiConfig.Retrieval)
}

func runServe(ctx context.Context) error {
	instanceProfile, err := buildProfile()
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, instanceProfile)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Configuration errors are fatal before the listener opens. Only the
	// not-yet-indexed catalog degrades to serving health and metrics with
	// 503 on /api/v1/recommend, so a fresh install can come up and be
	// indexed without a restart loop.
	recommender, err := buildRecommender(ctx, instanceProfile, storeInstance, m)
	if err != nil {
		if !errors.Is(err, errNoIndex) {
			storeInstance.Close()
			return errors.Wrap(err, "initialize recommendation pipeline")
		}
		slog.Warn("serving without recommendation pipeline", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := server.NewServer(ctx, instanceProfile, storeInstance, recommender, m)
	if err != nil {
		storeInstance.Close()
		return errors.Wrap(err, "create server")
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, terminationSignals...)

	if err := s.Start(ctx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "start server")
		}
	}
	printGreetings(instanceProfile)

	var serveErr error
	go func() {
		select {
		case <-c:
		case serveErr = <-s.Err():
		}
		s.Shutdown(ctx)
		cancel()
	}()

	<-ctx.Done()
	if serveErr != nil {
		return errors.Wrap(serveErr, "server failed")
	}
	return nil
}

const embedBatchSize = 32

func runIndex(ctx context.Context) error {
	instanceProfile, err := buildProfile()
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, instanceProfile)
	if err != nil {
		return err
	}
	defer storeInstance.Close()

	aiConfig, err := ai.NewConfigFromProfile(instanceProfile)
	if err != nil {
		return err
	}
	if err := aiConfig.Validate(); err != nil {
		return err
	}
	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return err
	}

	assessments, err := dataset.LoadCatalog(instanceProfile.CatalogFile)
	if err != nil {
		return err
	}
	slog.Info("catalog loaded", "assessments", len(assessments), "file", instanceProfile.CatalogFile)

	for i := range assessments {
		if err := storeInstance.UpsertAssessment(ctx, &assessments[i]); err != nil {
			return errors.Wrapf(err, "upsert assessment %s", assessments[i].ID)
		}
	}

	// Reindex from scratch so removed catalog rows do not survive in the index.
	if err := storeInstance.DeleteAssessmentEmbeddings(ctx, aiConfig.Embedding.Model); err != nil {
		return errors.Wrap(err, "clear stale embeddings")
	}

	entries := make([]vector.Entry, 0, len(assessments))
	for start := 0; start < len(assessments); start += embedBatchSize {
		end := min(start+embedBatchSize, len(assessments))
		batch := assessments[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].EmbeddingText()
		}
		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return errors.Wrapf(err, "embed batch at offset %d", start)
		}

		for i := range batch {
			embedding := &store.AssessmentEmbedding{
				AssessmentID: batch[i].ID,
				Model:        aiConfig.Embedding.Model,
				Vector:       vectors[i],
			}
			if err := storeInstance.UpsertAssessmentEmbedding(ctx, embedding); err != nil {
				return errors.Wrapf(err, "persist embedding %s", batch[i].ID)
			}
			entries = append(entries, vector.Entry{ID: batch[i].ID, Vector: vectors[i]})
		}
		slog.Info("embedded batch", "done", end, "total", len(assessments))
	}

	index, err := vector.Build(entries)
	if err != nil {
		return errors.Wrap(err, "build index")
	}
	if err := index.SaveFile(instanceProfile.IndexSnapshot); err != nil {
		return errors.Wrap(err, "save snapshot")
	}
	fmt.Printf("Indexed %d assessments (dimension %d) -> %s\n",
		index.Len(), index.Dimension(), instanceProfile.IndexSnapshot)
	return nil
}

// baselineStrategy returns the top candidates by retrieval order with no
// category balancing. Used as the comparison arm in evaluation runs.
type baselineStrategy struct{}

func (baselineStrategy) Balance(_ context.Context, _ string, candidates []balancer.Candidate, finalCount int) ([]balancer.Candidate, error) {
	if finalCount > len(candidates) {
		finalCount = len(candidates)
	}
	return candidates[:finalCount], nil
}

func runEval(ctx context.Context, baseline bool) error {
	instanceProfile, err := buildProfile()
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, instanceProfile)
	if err != nil {
		return err
	}
	defer storeInstance.Close()

	method := "full_pipeline"
	var recommender *ai.Recommender
	if baseline {
		method = "baseline_topk"
		aiConfig, err := ai.NewConfigFromProfile(instanceProfile)
		if err != nil {
			return err
		}
		if err := aiConfig.Validate(); err != nil {
			return err
		}
		embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
		if err != nil {
			return err
		}
		index, err := loadIndex(ctx, storeInstance, instanceProfile, aiConfig.Embedding.Model)
		if err != nil {
			return err
		}
		recommender, err = ai.NewRecommender(embedder, index, storeInstance, baselineStrategy{}, nil, aiConfig.Retrieval)
		if err != nil {
			return err
		}
	} else {
		recommender, err = buildRecommender(ctx, instanceProfile, storeInstance, nil)
		if err != nil {
			return err
		}
	}

	catalog, err := storeInstance.ListAssessments(ctx)
	if err != nil {
		return err
	}
	catalogValues := make([]store.Assessment, len(catalog))
	for i, a := range catalog {
		catalogValues[i] = *a
	}
	queries, err := dataset.LoadTrainQueries(instanceProfile.TrainFile, catalogValues)
	if err != nil {
		return err
	}

	evaluator, err := eval.NewEvaluator(recommender,
		recommender.DefaultTopK(), recommender.DefaultFinalCount(), 10)
	if err != nil {
		return err
	}
	report, err := evaluator.Evaluate(ctx, method, queries)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func runExport(ctx context.Context, output string) error {
	instanceProfile, err := buildProfile()
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, instanceProfile)
	if err != nil {
		return err
	}
	defer storeInstance.Close()

	recommender, err := buildRecommender(ctx, instanceProfile, storeInstance, nil)
	if err != nil {
		return err
	}

	queries, err := dataset.LoadTestQueries(instanceProfile.TestFile)
	if err != nil {
		return err
	}

	var predictions []dataset.Prediction
	for _, query := range queries {
		ids, err := recommender.RecommendIDs(ctx, query,
			recommender.DefaultTopK(), recommender.DefaultFinalCount())
		if err != nil {
			return errors.Wrapf(err, "recommend for %q", query)
		}
		for _, id := range ids {
			assessment, err := storeInstance.GetAssessment(ctx, id)
			if err != nil {
				slog.Warn("recommended id missing from catalog", "id", id)
				continue
			}
			predictions = append(predictions, dataset.Prediction{
				Query:         query,
				AssessmentURL: assessment.URL,
			})
		}
	}

	if err := dataset.WritePredictions(output, predictions); err != nil {
		return err
	}
	fmt.Printf("Wrote %d predictions for %d queries -> %s\n", len(predictions), len(queries), output)
	return nil
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8080)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8080, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver (sqlite, postgres)")
	flags.String("dsn", "", "database source name(aka. DSN)")
	flags.String("instance-url", "", "the url of this shlrec instance")
	flags.String("catalog", "", "assessment catalog CSV")
	flags.String("train", "", "labeled training queries CSV")
	flags.String("test", "", "unlabeled test queries CSV")
	flags.String("snapshot", "", "vector index snapshot path")

	for _, key := range []string{
		"mode", "addr", "port", "data", "driver", "dsn", "instance-url",
		"catalog", "train", "test", "snapshot",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}

	evalCmd.Flags().Bool("baseline", false, "evaluate plain top-k retrieval without balancing")
	if err := viper.BindPFlag("baseline", evalCmd.Flags().Lookup("baseline")); err != nil {
		panic(err)
	}
	exportCmd.Flags().String("output", "predictions.csv", "predictions CSV output path")
	if err := viper.BindPFlag("output", exportCmd.Flags().Lookup("output")); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("shlrec")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(indexCmd, evalCmd, exportCmd)
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("shlrec %s started successfully!\n", profile.Version)
	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}
	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
