package queue

import (
	"fmt"
	"time"

	"github.com/papyrus-lab/papyrus/internal/util"
	"github.com/papyrus-lab/papyrus/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const IngestQueue = "ingest_queue"

func Init() *amqp091.Connection {
	user := util.GetEnv("RABBITMQ_USER")
	pass := util.GetEnv("RABBITMQ_PASSWORD")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnv("RABBITMQ_PORT")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	// The broker may still be starting when the worker comes up.
	var conn *amqp091.Connection
	err := util.RetryErr(5, func() error {
		var dialErr error
		conn, dialErr = amqp091.Dial(connURL)
		if dialErr != nil {
			logger.Warn("RabbitMQ not reachable, retrying", "err", dialErr)
			time.Sleep(2 * time.Second)
		}
		return dialErr
	})
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// SetupQueues declares each work queue with its DLQ and retry companion.
// Messages published to the retry queue dead-letter back into the work
// queue after the TTL expires.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			logger.Fatal("QueueDeclare failed", "queue", name, "err", err)
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			logger.Fatal("QueueDeclare failed", "queue", dlqName, "err", err)
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(10000),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			logger.Fatal("QueueDeclare failed", "queue", retryName, "err", err)
		}
	}

	return nil
}

// PublishFIFO publishes one persistent message to a queue on the default
// exchange. The queue (work, retry or DLQ) must already be declared via
// SetupQueues; headers may be nil.
func PublishFIFO(ch *amqp091.Channel, queueName string, data []byte, headers amqp091.Table) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Headers:      headers,
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.Publish(
		"",
		queueName,
		false,
		false,
		publishing,
	)
}
