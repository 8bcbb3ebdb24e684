// Copyright 2018, Andrew C. Young
// License: MIT

package bytebeam

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
)

// ID identifies a device on the Bytebeam platform.
type ID struct {
	ProjectID string
	DeviceID  string
}

// Credentials wraps the TLS material issued for a device.
type Credentials struct {
	// Authority verifies the platform's certificates.
	Authority *x509.CertPool
	// Certificate holds the device certificate and private key.
	Certificate tls.Certificate
}

// LoadCredentials creates a Credentials struct from the given certificate
// authority, device certificate, and device private key files.
func LoadCredentials(authorityPath string, certificatePath string, privateKeyPath string) (*Credentials, error) {
	authority, err := os.ReadFile(authorityPath)
	if err != nil {
		return nil, err
	}

	certificate, err := os.ReadFile(certificatePath)
	if err != nil {
		return nil, err
	}

	privateKey, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, err
	}

	return ParseCredentials(authority, certificate, privateKey)
}

// ParseCredentials creates a Credentials struct from PEM encoded material.
func ParseCredentials(authority []byte, certificate []byte, privateKey []byte) (*Credentials, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(authority) {
		return nil, fmt.Errorf("could not parse certificate authority")
	}

	cert, err := tls.X509KeyPair(certificate, privateKey)
	if err != nil {
		return nil, fmt.Errorf("could not parse device certificate: %w", err)
	}

	return &Credentials{
		Authority:   pool,
		Certificate: cert,
	}, nil
}

// TLSConfig returns the TLS configuration used to reach the platform.
func (c *Credentials) TLSConfig() *tls.Config {
	return &tls.Config{
		RootCAs:      c.Authority,
		Certificates: []tls.Certificate{c.Certificate},
	}
}

// DeviceConfig mirrors the provisioning file issued by the platform for each device.
type DeviceConfig struct {
	CACertificate     string `json:"ca_certificate"`
	DeviceCertificate string `json:"device_certificate"`
	DevicePrivateKey  string `json:"device_private_key"`
	BrokerURI         string `json:"broker_uri"`
	DeviceID          string `json:"device_id"`
	ProjectID         string `json:"project_id"`
}

// LoadDeviceConfig reads a provisioning file.
func LoadDeviceConfig(path string) (*DeviceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &DeviceConfig{}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("could not parse device config: %w", err)
	}

	return config, nil
}

// Options returns a default Options struct for the provisioned device.
func (c *DeviceConfig) Options() (*Options, error) {
	credentials, err := ParseCredentials([]byte(c.CACertificate), []byte(c.DeviceCertificate), []byte(c.DevicePrivateKey))
	if err != nil {
		return nil, err
	}

	id := &ID{
		ProjectID: c.ProjectID,
		DeviceID:  c.DeviceID,
	}

	return DefaultOptions(id, credentials), nil
}
