package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the outbox uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the JSON record published to the notification topic. A mail
// worker downstream renders and delivers it; attachments travel inline
// because the temporary files are gone once Send returns.
type Envelope struct {
	To          string               `json:"to"`
	Subject     string               `json:"subject"`
	Template    string               `json:"template"`
	Vars        map[string]any       `json:"vars"`
	Attachments []EnvelopeAttachment `json:"attachments,omitempty"`
	QueuedAt    time.Time            `json:"queued_at"`
}

// EnvelopeAttachment is an attachment carried inside an Envelope.
type EnvelopeAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// KafkaNotifier publishes messages to a topic instead of sending mail itself.
type KafkaNotifier struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewKafkaWriter builds the production writer for the notification topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
}

// NewKafkaNotifier constructs a KafkaNotifier.
func NewKafkaNotifier(writer MessageWriter, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, logger: logger.Named("kafka")}
}

// Send implements Notifier.
func (n *KafkaNotifier) Send(ctx context.Context, msg Message) error {
	if _, err := Render(msg.Template, msg.Vars); err != nil {
		return err
	}

	env := Envelope{
		To:       msg.To,
		Subject:  msg.Subject,
		Template: msg.Template,
		Vars:     msg.Vars,
		QueuedAt: time.Now().UTC(),
	}
	for _, a := range msg.Attachments {
		content, err := os.ReadFile(a.Path)
		if err != nil {
			return fmt.Errorf("read attachment %s: %w", a.Filename, err)
		}
		env.Attachments = append(env.Attachments, EnvelopeAttachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     content,
		})
	}

	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: value,
		Headers: []kafka.Header{
			{Key: "template", Value: []byte(msg.Template)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	n.logger.Debug("notification queued", zap.String("template", msg.Template))
	return nil
}

// Close flushes and closes the writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
