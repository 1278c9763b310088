// Package transport delivers GS1 messages to the trading partner broker
// over HTTP.
package transport

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config holds configuration for the broker client
type Config struct {
	// BrokerAddress is the base URL; message paths are appended to it
	BrokerAddress string
	Username      string
	Password      string
	// UseAS2MimeEncoding posts bodies as multipart/form-data instead of
	// plain application/xml
	UseAS2MimeEncoding bool
	Timeout            time.Duration
}

// Errors for broker configuration
var (
	ErrConfigMissingBroker = errors.New("transport: broker address is required")
	ErrConfigInvalidBroker = errors.New("transport: broker address must be an absolute http(s) URL")
)

// DefaultTimeout bounds one request to the broker
const DefaultTimeout = 30 * time.Second

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BrokerAddress) == "" {
		return ErrConfigMissingBroker
	}
	u, err := url.Parse(c.BrokerAddress)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrConfigInvalidBroker
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}
