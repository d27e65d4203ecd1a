package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"travelbot/handler"
	"travelbot/internal/aggregate"
	"travelbot/internal/bot"
	"travelbot/internal/flow"
	"travelbot/internal/integrations/paramstore"
	"travelbot/internal/provider/foursquare"
	"travelbot/internal/provider/llm"
	"travelbot/internal/provider/opentripmap"
	"travelbot/internal/provider/openweather"
	"travelbot/internal/repository"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	tableName := mustEnv("TABLE_NAME")
	paramPrefix := mustEnv("PARAM_PREFIX")
	dateFormat := envStr("DATE_FORMAT", "02.01.2006")
	resultLimit := envInt("RESULT_LIMIT", 5)
	weatherTTL := envDuration("WEATHER_CACHE_TTL", 10*time.Minute)
	poiTTL := envDuration("POI_CACHE_TTL", 30*time.Minute)
	llmModel := envStr("LLM_MODEL", "")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	repo, err := repository.New(awsdynamodb.NewFromConfig(cfg), tableName)
	if err != nil {
		slog.Error("failed to create repository", "err", err)
		os.Exit(1)
	}

	// ---- Data providers ----
	weatherClient, err := openweather.New(ssmClient, paramPrefix+"/openweather-api-key")
	if err != nil {
		slog.Error("failed to create openweather client", "err", err)
		os.Exit(1)
	}
	fsqClient, err := foursquare.New(ssmClient, paramPrefix+"/foursquare-api-key")
	if err != nil {
		slog.Error("failed to create foursquare client", "err", err)
		os.Exit(1)
	}
	otmClient, err := opentripmap.New(ssmClient, paramPrefix+"/opentripmap-api-key")
	if err != nil {
		slog.Error("failed to create opentripmap client", "err", err)
		os.Exit(1)
	}
	llmOpts := []llm.Option{}
	if llmModel != "" {
		llmOpts = append(llmOpts, llm.WithModel(llmModel))
	}
	llmClient, err := llm.New(ssmClient, paramPrefix+"/openai-api-key", llmOpts...)
	if err != nil {
		slog.Error("failed to create llm client", "err", err)
		os.Exit(1)
	}

	// ---- Aggregator ----
	cache := aggregate.NewCache(weatherTTL, poiTTL)
	resolver, err := aggregate.New(
		cache,
		[]aggregate.Provider{weatherClient},
		[]aggregate.Provider{fsqClient, otmClient, llmClient},
		slog.Default(),
	)
	if err != nil {
		slog.Error("failed to create aggregator", "err", err)
		os.Exit(1)
	}

	// ---- Conversation ----
	engine, err := flow.NewEngine(flow.NewStore(), repo, resolver, dateFormat, resultLimit, slog.Default())
	if err != nil {
		slog.Error("failed to create flow engine", "err", err)
		os.Exit(1)
	}
	router, err := bot.NewRouter(engine, repo, resolver, dateFormat, resultLimit, slog.Default())
	if err != nil {
		slog.Error("failed to create router", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(router)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
