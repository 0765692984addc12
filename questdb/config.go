package questdb

import "time"

type Config struct {
	// Address is the host:port of the QuestDB HTTP endpoint.
	Address string
	Table   string

	RetryTimeout time.Duration
}

func NewDefaultConfig() *Config {
	return &Config{
		Address: "localhost:9000",
		Table:   "cdd_stats",

		RetryTimeout: time.Second,
	}
}
