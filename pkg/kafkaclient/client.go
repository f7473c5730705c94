package kafkaclient

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaReader defines the interface for a Kafka message reader.
// This allows for easy mocking in unit tests.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer manages the Kafka consumer and its message loop.
type KafkaConsumer struct {
	reader KafkaReader
	logger *zap.Logger
	// closed to stop the loop
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	// messages handed to the Iterator
	messageChan chan kafka.Message
	// pause after a read error
	backoff time.Duration
}

// NewKafkaConsumer creates a consumer in groupID that commits offsets
// manually.
func NewKafkaConsumer(topic, groupID, broker string, logger *zap.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: groupID,
		// Disable auto-commit to manually control offset committing.
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       10e6,
	})
	return newConsumer(reader, logger)
}

func newConsumer(reader KafkaReader, logger *zap.Logger) *KafkaConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaConsumer{
		reader:      reader,
		logger:      logger,
		doneChan:    make(chan struct{}),
		messageChan: make(chan kafka.Message),
		backoff:     time.Second,
	}
}

// StartConsuming begins the Kafka message consumption loop in a separate goroutine.
func (kc *KafkaConsumer) StartConsuming(ctx context.Context) {
	kc.wg.Add(1)
	go func() {
		defer kc.wg.Done()
		defer close(kc.messageChan)

		kc.logger.Info("starting kafka consumer loop")

		for {
			select {
			case <-ctx.Done():
				kc.logger.Info("context canceled, stopping consumer loop")
				return
			case <-kc.doneChan:
				kc.logger.Info("shutdown requested, stopping consumer loop")
				return
			default:
			}

			msg, err := kc.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return
				}
				kc.logger.Warn("error reading message", zap.Error(err))
				select {
				case <-time.After(kc.backoff):
				case <-ctx.Done():
					return
				case <-kc.doneChan:
					return
				}
				continue
			}

			select {
			case kc.messageChan <- msg:
				kc.logger.Debug("message received",
					zap.String("topic", msg.Topic), zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
			case <-ctx.Done():
				return
			case <-kc.doneChan:
				return
			}
		}
	}()
}

// Stop shuts down the consumer loop and closes the reader. It is safe to call
// more than once.
func (kc *KafkaConsumer) Stop() {
	kc.stopOnce.Do(func() {
		close(kc.doneChan)
		// unblock a pending ReadMessage
		if err := kc.reader.Close(); err != nil {
			kc.logger.Warn("failed to close kafka reader", zap.Error(err))
		}
		kc.wg.Wait()
		kc.logger.Info("kafka consumer stopped")
	})
}

// Iterator provides a channel-based interface to consume messages.
type Iterator struct {
	messages chan kafka.Message
	consumer *KafkaConsumer
}

// NewIterator returns a new Iterator for the consumer.
func (kc *KafkaConsumer) NewIterator() *Iterator {
	return &Iterator{
		messages: kc.messageChan,
		consumer: kc,
	}
}

// Messages returns the channel of Kafka messages. It is closed when the
// consumer stops.
func (it *Iterator) Messages() <-chan kafka.Message {
	return it.messages
}

// CommitOffset manually commits the offset of a message.
func (it *Iterator) CommitOffset(ctx context.Context, msg kafka.Message) error {
	it.consumer.logger.Debug("committing offset",
		zap.String("topic", msg.Topic), zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
	return it.consumer.reader.CommitMessages(ctx, msg)
}

// KafkaWriter is the subset of kafka.Writer the producer uses.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes keyed messages to one topic.
type Producer struct {
	writer KafkaWriter
	logger *zap.Logger
}

// NewProducer creates a producer for topic that waits for the leader's ack.
func NewProducer(topic, broker string, logger *zap.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}, logger)
}

func newProducer(writer KafkaWriter, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{writer: writer, logger: logger}
}

// Publish writes one message and returns once the broker has accepted it.
func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return err
	}
	p.logger.Debug("message published", zap.ByteString("key", key), zap.Int("bytes", len(value)))
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
