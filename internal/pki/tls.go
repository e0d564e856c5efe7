// Package pki builds the one-way TLS configuration spec.md requires: the
// server presents a certificate and key, the client pins a single trust
// root and does not present a client certificate (grounded on the
// teacher's internal/pki/tls.go, adapted away from mutual TLS since this
// protocol has no client-certificate concept).
package pki

import (
	"crypto/tls"
	"crypto/x509"
	"os"
)

// ALPN is the application-protocol identifier both sides must negotiate.
const ALPN = "ample/0.1"

// NewServerTLSConfig loads the server's certificate and key and returns a
// TLS 1.3 config presenting them, with ALPN pinned to ample/0.1. There is
// no client certificate requirement: this transport is one-way.
func NewServerTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	if certPath == "" {
		return nil, &MissingKeyPathError{Path: certPath}
	}
	if keyPath == "" {
		return nil, &MissingKeyPathError{Path: keyPath}
	}

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, &TlsError{Err: err}
	}

	return &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPN},
	}, nil
}

// NewClientTLSConfig loads a single PEM certificate to pin as the trust
// root and returns a TLS 1.3 config that verifies the server against it
// and the expected FQDN. The client presents no certificate of its own.
func NewClientTLSConfig(trustRootPath, serverFQDN string) (*tls.Config, error) {
	if trustRootPath == "" {
		return nil, &MissingKeyPathError{Path: trustRootPath}
	}

	pool, err := loadTrustRootPool(trustRootPath)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		RootCAs:    pool,
		ServerName: serverFQDN,
		NextProtos: []string{ALPN},
	}, nil
}

func loadTrustRootPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, &IoError{Path: path, Err: err}
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, &PemParseError{Path: path}
	}

	return pool, nil
}
