package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/papyrus-lab/papyrus/internal/queue"
	"github.com/papyrus-lab/papyrus/internal/storage"
	"github.com/papyrus-lab/papyrus/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/papyrus-lab/papyrus/pkg/ai"
	oai "github.com/papyrus-lab/papyrus/pkg/ai/ollama"
	gai "github.com/papyrus-lab/papyrus/pkg/ai/openai"
	"github.com/papyrus-lab/papyrus/pkg/logger"
	"github.com/papyrus-lab/papyrus/pkg/logger/console"
	"github.com/papyrus-lab/papyrus/pkg/pipeline"
	"github.com/papyrus-lab/papyrus/pkg/segment"
	graphstorage "github.com/papyrus-lab/papyrus/pkg/store/pgx"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	databaseURL := util.GetEnv("DATABASE_URL")
	runMigrations(databaseURL)

	// Init s3 client
	s3Client := storage.NewS3Client(ctx)

	// AI adapter
	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.IngestAIClient

	switch adapter {
	case "ollama":
		client, err := oai.NewIngestOllamaClient(oai.NewIngestOllamaClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = gai.NewIngestOpenAIClient(gai.NewIngestOpenAIClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
		})
	}

	// Init pgx pool with pgvector type registration
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		logger.Fatal("Invalid database URL", "err", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pgConn, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	dbStorage := graphstorage.NewIngestDBStorageWithConnection(pgConn, graphstorage.NewIngestDBStorageParams{
		AIClient:              aiClient,
		MaxParallelEmbeddings: util.GetEnvInt("MAX_PARALLEL_EMBEDDINGS", 8),
	})

	pipelineClient, err := pipeline.NewClient(pipeline.NewClientParams{
		AIClient:    aiClient,
		GraphStore:  dbStorage,
		VectorStore: dbStorage,
		SegmentConfig: segment.Config{
			Strategy:        segment.Strategy(util.GetEnvString("SEGMENT_STRATEGY", string(segment.StrategyHierarchical))),
			TargetChunkSize: util.GetEnvInt("SEGMENT_CHUNK_SIZE", segment.DefaultChunkSize),
		},
		ParallelDocs: util.GetEnvInt("PARALLEL_DOCS", 3),
		DocTimeout:   time.Duration(util.GetEnvInt("DOC_TIMEOUT_MIN", 10)) * time.Minute,
		MaxRetries:   util.GetEnvInt("EXTRACT_MAX_RETRIES", 3),
	})
	if err != nil {
		logger.Fatal("Could not create pipeline client", "err", err)
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.IngestQueue}
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	logger.Info("Listening for messages")

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	// prefetch matches the pipeline's document parallelism
	prefetch := util.GetEnvInt("PARALLEL_DOCS", 3)
	err = consumerCh.Qos(prefetch, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.IngestQueue,
		"ingest_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.IngestQueue, "err", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed", "queue", queue.IngestQueue)
					return
				}

				startTime := time.Now()
				logger.Info("Received message", "queue", queue.IngestQueue)

				processingErr := queue.ProcessIngestMessage(ctx, s3Client, pipelineClient, string(msg.Body))
				if processingErr != nil {
					logger.Error("Error processing message", "queue", queue.IngestQueue, "err", processingErr)
					handleProcessingError(consumerCh, msg, queue.IngestQueue)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", queue.IngestQueue, "duration", time.Since(startTime))
				}
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func runMigrations(databaseURL string) {
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		logger.Fatal("Failed to init migrations", "err", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("Failed to run migrations", "err", err)
	}
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// After 10 attempts the message parks in the DLQ for inspection.
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		if pubErr := queue.PublishFIFO(ch, dlqName, msg.Body, msg.Headers); pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	if pubErr := queue.PublishFIFO(ch, retryName, msg.Body, headers); pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
