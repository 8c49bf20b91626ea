package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/doc-assistant/api"
	"github.com/fyerfyer/doc-assistant/api/handler"
	"github.com/fyerfyer/doc-assistant/api/middleware"
	appconfig "github.com/fyerfyer/doc-assistant/config"
	"github.com/fyerfyer/doc-assistant/internal/cache"
	"github.com/fyerfyer/doc-assistant/internal/document"
	"github.com/fyerfyer/doc-assistant/internal/embedding"
	"github.com/fyerfyer/doc-assistant/internal/llm"
	"github.com/fyerfyer/doc-assistant/internal/retrieval"
	"github.com/fyerfyer/doc-assistant/internal/services"
	"github.com/fyerfyer/doc-assistant/internal/vectordb"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// 命令行参数，非零值时覆盖配置文件
type flags struct {
	ConfigFile string
	Port       int
	Mode       string
	LogLevel   string
}

func main() {
	// .env 文件不存在时忽略
	_ = godotenv.Load()

	f := parseFlags()

	cfg, err := appconfig.Load(f.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, f)

	gin.SetMode(cfg.Server.Mode)

	logger := middleware.SetupLogger(middleware.LogOptions{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	logger.Info("Starting document assistant...")

	embedClient, err := setupEmbedding(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize embedding client: %v", err)
	}

	gateway, err := setupGateway(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize LLM gateway: %v", err)
	}

	store := retrieval.NewStore(embedClient,
		retrieval.WithIndexType(resolveIndexType(cfg.Index.Type, logger)),
		retrieval.WithBatch(cfg.Embed.BatchSize, cfg.Embed.Workers),
		retrieval.WithLogger(logger),
	)

	chunker, err := document.NewChunker(cfg.Document.ChunkSize, cfg.Document.ChunkOverlap)
	if err != nil {
		logger.Fatalf("Failed to create chunker: %v", err)
	}

	orchestrator, err := services.NewOrchestrator(gateway,
		services.WithThreshold(cfg.Task.Threshold),
		services.WithOverlap(cfg.Document.ChunkOverlap),
		services.WithReduceMode(services.ReduceMode(cfg.Task.ReduceMode)),
		services.WithWorkers(cfg.Task.Workers),
		services.WithRetries(cfg.Task.Retries, 500*time.Millisecond),
		services.WithOrchestratorLogger(logger),
	)
	if err != nil {
		logger.Fatalf("Failed to create orchestrator: %v", err)
	}

	serviceOpts := []services.AssistantOption{
		services.WithTopK(cfg.Search.TopK),
		services.WithLogger(logger),
	}
	if cfg.Cache.Enable {
		c, err := setupCache(cfg)
		if err != nil {
			// 缓存不可用时继续运行，只是不缓存结果
			logger.WithError(err).Warn("Cache disabled")
		} else {
			serviceOpts = append(serviceOpts, services.WithCache(c, time.Duration(cfg.Cache.TTL)*time.Second))
		}
	}
	assistant := services.NewAssistantService(chunker, store, orchestrator, serviceOpts...)

	r := api.SetupRouter(
		handler.NewDocumentHandler(assistant, cfg.Server.MaxUploadSize),
		handler.NewTaskHandler(assistant),
		handler.NewQAHandler(assistant),
	)
	r.MaxMultipartMemory = cfg.Server.MaxUploadSize

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":      addr,
			"llm":       gateway.Name(),
			"embedding": embedClient.Name(),
		}).Info("Server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	// 释放当前文档的索引
	assistant.Session().Clear()

	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() flags {
	f := flags{}
	flag.StringVar(&f.ConfigFile, "config", "", "Path to config file")
	flag.IntVar(&f.Port, "port", 0, "Server port")
	flag.StringVar(&f.Mode, "mode", "", "Run mode (debug/release)")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level (debug/info/warn/error)")
	flag.Parse()
	return f
}

// applyFlags 用命令行参数覆盖配置
func applyFlags(cfg *appconfig.Config, f flags) {
	if f.Port > 0 {
		cfg.Server.Port = f.Port
	}
	if f.Mode != "" {
		cfg.Server.Mode = f.Mode
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
}

// setupEmbedding 创建嵌入模型客户端
func setupEmbedding(cfg *appconfig.Config) (embedding.Client, error) {
	return embedding.NewClient(cfg.Embed.Provider,
		embedding.WithAPIKey(cfg.Embed.APIKey),
		embedding.WithBaseURL(cfg.Embed.Endpoint),
		embedding.WithModel(cfg.Embed.Model),
		embedding.WithDimensions(cfg.Embed.Dimensions),
		embedding.WithBatchSize(cfg.Embed.BatchSize),
	)
}

// setupGateway 创建大模型客户端并包装为网关
func setupGateway(cfg *appconfig.Config, logger *logrus.Logger) (*llm.Gateway, error) {
	client, err := llm.NewClient(cfg.LLM.Provider,
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithBaseURL(cfg.LLM.Endpoint),
		llm.WithModel(cfg.LLM.Model),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
	)
	if err != nil {
		return nil, err
	}

	return llm.NewGateway(client,
		llm.WithGatewayTimeout(cfg.LLM.Timeout),
		llm.WithGatewayMaxTokens(cfg.LLM.MaxTokens),
		llm.WithGatewayTemperature(cfg.LLM.Temperature),
		llm.WithGatewayLogger(logger),
	), nil
}

// resolveIndexType 检查FAISS是否可用，不可用时回退到内存索引
func resolveIndexType(indexType string, logger *logrus.Logger) string {
	if indexType != "faiss" {
		return indexType
	}

	repo, err := vectordb.NewRepository(vectordb.Config{
		Type:         "faiss",
		Dimension:    8,
		DistanceType: vectordb.Euclidean,
	})
	if err != nil {
		logger.WithError(err).Warn("FAISS index unavailable, falling back to in-memory index")
		return "memory"
	}
	_ = repo.Close()
	return indexType
}

// setupCache 创建结果缓存
func setupCache(cfg *appconfig.Config) (cache.Cache, error) {
	cacheConfig := cache.DefaultConfig()
	cacheConfig.Type = cfg.Cache.Type
	cacheConfig.RedisAddr = cfg.Cache.Address
	cacheConfig.RedisPassword = cfg.Cache.Password
	cacheConfig.RedisDB = cfg.Cache.DB
	if cfg.Cache.TTL > 0 {
		cacheConfig.DefaultTTL = time.Duration(cfg.Cache.TTL) * time.Second
	}
	return cache.NewCache(cacheConfig)
}
