// census-fetch runs the census fetch pipeline from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ukcensus-tools/census-client/internal/config"
	"github.com/ukcensus-tools/census-client/pkg/cache"
	"github.com/ukcensus-tools/census-client/pkg/census"
	"github.com/ukcensus-tools/census-client/pkg/client"
	"github.com/ukcensus-tools/census-client/pkg/logging"
	"github.com/ukcensus-tools/census-client/pkg/pagination"
	"github.com/ukcensus-tools/census-client/pkg/ratelimit"
	"github.com/ukcensus-tools/census-client/pkg/store"
	"github.com/ukcensus-tools/census-client/pkg/store/postgres"
	"github.com/ukcensus-tools/census-client/pkg/store/sqlite"
	"github.com/ukcensus-tools/census-client/pkg/subset"
)

var (
	configPath     string
	populationType string
	dimensions     []string
	mode           string
)

func main() {
	root := &cobra.Command{
		Use:   "census-fetch",
		Short: "Fetch and cache census data through the rate-limited pipeline",
		Long: `census-fetch resolves the census resource dependency graph:
population types, area types, areas, dimensions, categories and
observations. Everything already in the resource store is reused;
only missing data is fetched from the API.`,
		RunE: run,

		SilenceUsage: true,
	}

	root.Flags().StringVarP(&configPath, "config", "c", "", "config file (YAML)")
	root.Flags().StringVarP(&populationType, "population-type", "p", "", "population type to fetch (default: all microdata types)")
	root.Flags().StringArrayVarP(&dimensions, "dimension", "d", nil, "dimension id substring filter (repeatable, each builds one dimension list)")
	root.Flags().StringVarP(&mode, "mode", "m", "all", "how dimension lists combine into observation queries: all or any")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	limiter, err := ratelimit.New(cfg.Windows(), logging.NewLogger("ratelimit"))
	if err != nil {
		return err
	}

	clientCfg := client.DefaultConfig(cfg.BaseURL, limiter)
	clientCfg.ResponseCacheTTL = cfg.Redis.TTL
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		clientCfg.ResponseCache = cache.NewManager(redisClient)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Response cache enabled")
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return err
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	fetcher := pagination.NewFetcher(c, pagination.Config{
		Limit:               cfg.Fetch.Limit,
		EarlyExitAfterPages: cfg.Fetch.EarlyExitPages,
	})
	orchestrator := census.New(s, fetcher)

	return runPipeline(ctx, orchestrator, logger)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return postgres.New(ctx, cfg.Store.DSN)
	default:
		return sqlite.New(cfg.Store.DSN)
	}
}

// runPipeline resolves the stages in dependency order and reports how many
// rows each stage holds afterwards.
func runPipeline(ctx context.Context, o *census.Orchestrator, logger zerolog.Logger) error {
	populations, err := o.PopulationTypes(ctx)
	if err != nil {
		return fmt.Errorf("population types: %w", err)
	}
	logger.Info().Int("rows", len(populations)).Msg("Population types resolved")

	areaTypes, err := o.AreaTypes(ctx, populationType)
	if err != nil {
		return fmt.Errorf("area types: %w", err)
	}
	logger.Info().Int("rows", len(areaTypes)).Msg("Area types resolved")

	areas, err := o.AreaInfos(ctx, populationType)
	if err != nil {
		return fmt.Errorf("area infos: %w", err)
	}
	logger.Info().Int("rows", len(areas)).Msg("Area infos resolved")

	if len(dimensions) == 0 {
		logger.Info().Msg("No dimension filters given, skipping dimensions and observations")
		return nil
	}
	if populationType == "" {
		return fmt.Errorf("dimension fetches require --population-type")
	}

	// Each --dimension flag builds one dimension list via the cached
	// dimension catalogue.
	var lists [][]string
	for _, substring := range dimensions {
		if _, err := o.Dimensions(ctx, populationType, substring); err != nil {
			return fmt.Errorf("dimensions %q: %w", substring, err)
		}
		ids, err := o.FilteredDimensionIDs(ctx, populationType, substring)
		if err != nil {
			return fmt.Errorf("dimensions %q: %w", substring, err)
		}
		if len(ids) == 0 {
			return fmt.Errorf("no dimensions match %q", substring)
		}
		lists = append(lists, ids)
	}

	categories, err := o.Categories(ctx, populationType)
	if err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	logger.Info().Int("rows", len(categories)).Msg("Categories resolved")

	observations, err := o.Observations(ctx, census.ObservationRequest{
		PopulationType: populationType,
		DimensionLists: lists,
		Mode:           subset.Mode(mode),
	})
	if err != nil {
		return fmt.Errorf("observations: %w", err)
	}
	logger.Info().Int("rows", len(observations)).Msg("Observations resolved")

	return nil
}
