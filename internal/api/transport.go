package api

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// newTransport builds the HTTP transport for hub requests. Certificate
// verification is skipped entirely when verifySSL is false, which is common
// for hubs serving self-signed certificates on the LAN.
func newTransport(verifySSL bool, logger *logrus.Logger) *http.Transport {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	if !verifySSL {
		tlsConfig.InsecureSkipVerify = true
		logger.Debug("TLS certificate verification disabled for hub requests")
	}

	return &http.Transport{
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
	}
}
