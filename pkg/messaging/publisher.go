// Package messaging delivers completed analysis results to the reporting
// collaborator's AMQP queue. The analysis core itself stays pure; this is the
// outer boundary adapter.
package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	pkgerrors "interaction-analyzer/pkg/errors"
	"interaction-analyzer/pkg/interaction"
	"interaction-analyzer/pkg/metrics"
)

// PublisherConfig holds AMQP publisher configuration.
type PublisherConfig struct {
	URL          string
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Durable      bool
}

// ResultMessage is the wire envelope for one published analysis result.
type ResultMessage struct {
	AnalysisID  string              `json:"analysis_id"`
	PublishedAt time.Time           `json:"published_at"`
	Result      *interaction.Result `json:"result"`
}

// Publisher handles the AMQP connection and result publishing.
type Publisher struct {
	logger  *logrus.Entry
	config  PublisherConfig
	conn    *amqp.Connection
	channel *amqp.Channel

	connected bool
	connMutex sync.RWMutex
}

// NewPublisher creates an AMQP result publisher.
func NewPublisher(logger *logrus.Logger, config PublisherConfig) *Publisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if config.RoutingKey == "" {
		config.RoutingKey = config.QueueName
	}
	return &Publisher{
		logger: logger.WithField("component", "result_publisher"),
		config: config,
	}
}

// Connect establishes the connection and declares the result queue.
func (p *Publisher) Connect() error {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	conn, err := amqp.Dial(p.config.URL)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to connect to AMQP broker")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return pkgerrors.Wrap(err, "failed to open AMQP channel")
	}

	_, err = channel.QueueDeclare(
		p.config.QueueName,
		p.config.Durable,
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return pkgerrors.Wrap(err, "failed to declare result queue",
			map[string]interface{}{"queue": p.config.QueueName})
	}

	p.conn = conn
	p.channel = channel
	p.connected = true

	p.logger.WithField("queue", p.config.QueueName).Info("Connected to AMQP broker")
	return nil
}

// IsConnected reports connection state.
func (p *Publisher) IsConnected() bool {
	p.connMutex.RLock()
	defer p.connMutex.RUnlock()
	return p.connected
}

// Publish delivers one analysis result to the reporting queue.
func (p *Publisher) Publish(result *interaction.Result) error {
	p.connMutex.RLock()
	defer p.connMutex.RUnlock()

	if !p.connected || p.channel == nil {
		err := pkgerrors.Wrap(pkgerrors.ErrPublishFailed, "publisher not connected")
		metrics.ObservePublish(p.config.QueueName, err)
		return err
	}

	body, err := json.Marshal(ResultMessage{
		AnalysisID:  result.Metadata.AnalysisID,
		PublishedAt: time.Now().UTC(),
		Result:      result,
	})
	if err != nil {
		metrics.ObservePublish(p.config.QueueName, err)
		return pkgerrors.Wrap(err, "failed to marshal result message")
	}

	err = p.channel.Publish(
		p.config.ExchangeName,
		p.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	metrics.ObservePublish(p.config.QueueName, err)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to publish result",
			map[string]interface{}{"analysis_id": result.Metadata.AnalysisID})
	}

	p.logger.WithFields(logrus.Fields{
		"analysis_id": result.Metadata.AnalysisID,
		"queue":       p.config.QueueName,
		"bytes":       len(body),
	}).Debug("Published analysis result")
	return nil
}

// Close shuts the channel and connection down.
func (p *Publisher) Close() {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.connected = false
}
