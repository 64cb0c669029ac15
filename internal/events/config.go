package events

import (
	"log/slog"

	"github.com/Veraticus/smartspend/internal/service"
)

// Config selects the brokers that receive alerts. Both may be set.
type Config struct {
	AMQPURL      string
	Exchange     string
	Queue        string
	KafkaBrokers []string
	KafkaTopic   string
}

// Enabled reports whether any broker is configured.
func (c Config) Enabled() bool {
	return c.AMQPURL != "" || len(c.KafkaBrokers) > 0
}

// New connects to the configured brokers. It returns nil when none are configured.
func New(cfg Config, logger *slog.Logger) (service.AlertPublisher, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var publishers Multi
	if cfg.AMQPURL != "" {
		p, err := NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange, cfg.Queue, logger)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, p)
	}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			_ = publishers.Close()
			return nil, err
		}
		publishers = append(publishers, p)
	}

	if len(publishers) == 1 {
		return publishers[0], nil
	}
	return publishers, nil
}
