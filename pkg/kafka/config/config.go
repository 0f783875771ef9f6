package config

import (
	"fmt"
	"time"
)

// Config holds producer settings shared by every event topic.
type Config struct {
	Brokers []string

	ProducerRequireAcks  int
	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerCompression  string
	ProducerAsync        bool

	WriteTimeout time.Duration
}

func Default(brokers []string) *Config {
	return &Config{
		Brokers:              brokers,
		ProducerRequireAcks:  -1,
		ProducerMaxAttempts:  3,
		ProducerBatchTimeout: 10 * time.Millisecond,
		ProducerCompression:  "snappy",
		WriteTimeout:         10 * time.Second,
	}
}

func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one broker is required")
	}

	if c.ProducerMaxAttempts < 1 {
		return fmt.Errorf("producer max attempts must be at least 1")
	}

	return nil
}
