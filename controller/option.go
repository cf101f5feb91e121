package controller

import (
	"time"

	"github.com/xaionaro-go/btrelay/capture"
)

// Option sets an option on an Engine.
type Option func(*config)

type config struct {
	CommandTimeout   time.Duration
	DataLog          *capture.Log
	SubscriberBuffer int
}

func defaultConfig() config {
	return config{
		SubscriberBuffer: 64,
	}
}

// OptionCommandTimeout bounds every blocking command. Zero waits forever.
func OptionCommandTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.CommandTimeout = d
	}
}

// OptionDataLog records every ACL frame exchanged with the controller.
func OptionDataLog(l *capture.Log) Option {
	return func(cfg *config) {
		cfg.DataLog = l
	}
}

// OptionSubscriberBuffer sets the channel capacity of new subscriptions.
func OptionSubscriberBuffer(n int) Option {
	return func(cfg *config) {
		if n < 0 {
			n = 0
		}
		cfg.SubscriberBuffer = n
	}
}
