package tls

import (
	"crypto/tls"
	"fmt"
)

// ServerConfig creates a TLS config for the HTTPS listener. The gateway
// requires callbacks to be delivered over HTTPS.
func ServerConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
