// Copyright 2018, Andrew C. Young
// License: MIT

package paho

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/vaelen/bytebeam"
)

var ID = &bytebeam.ID{
	ProjectID: "z",
	DeviceID:  "bytebeam_test",
}

// These tests are here mainly for coverage.
// The client behavior is tested in the main bytebeam package.

func TestNewClient(t *testing.T) {
	if bytebeam.NewClient == nil {
		t.Fatal("Importing the package should set bytebeam.NewClient")
	}

	client := NewClient(nil, getOptions(t))
	if client == nil {
		t.Fatal("Client wasn't returned from NewClient()")
	}
	if client.IsConnected() {
		t.Fatal("Client thinks it is connected before connecting")
	}
}

func TestNotConnectedErrors(t *testing.T) {
	ctx := context.Background()
	client := NewClient(nil, getOptions(t))

	if err := client.Publish(ctx, "topic", 1, []byte("payload")); err != bytebeam.ErrNotConnected {
		t.Fatalf("Publishing while disconnected returned the wrong error: %v", err)
	}
	if err := client.Subscribe(ctx, "topic", 1, nil); err != bytebeam.ErrNotConnected {
		t.Fatalf("Subscribing while disconnected returned the wrong error: %v", err)
	}
	if err := client.Unsubscribe(ctx, "topic"); err != bytebeam.ErrNotConnected {
		t.Fatalf("Unsubscribing while disconnected returned the wrong error: %v", err)
	}
	if err := client.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnecting while disconnected returned an error: %v", err)
	}
}

func TestClientSetters(t *testing.T) {
	client := NewClient(nil, getOptions(t)).(*MQTTClient)

	client.SetClientID("z-bytebeam_test")
	if client.clientID != "z-bytebeam_test" {
		t.Fatalf("Client ID not set: %v", client.clientID)
	}

	client.SetCredentialsProvider(func() (username string, password string) {
		return "bytebeam_test", "token"
	})
	if client.credentialsProvider == nil {
		t.Fatal("Credentials provider not set")
	}
	username, password := client.credentialsProvider()
	if username != "bytebeam_test" || password != "token" {
		t.Fatalf("Wrong credentials returned: %v %v", username, password)
	}

	client.SetOnConnectHandler(func(c bytebeam.MQTTClient) {})
	if client.onConnectHandler == nil {
		t.Fatal("OnConnectHandler not set")
	}

	client.SetConnectionLostHandler(func(err error) {})
	if client.connectionLostHandler == nil {
		t.Fatal("ConnectionLostHandler not set")
	}

	client.SetDebugLogger(func(a ...interface{}) {})
	client.SetInfoLogger(func(a ...interface{}) {})
	client.SetErrorLogger(func(a ...interface{}) {})
}

func TestPahoLogger(t *testing.T) {
	out := &bytes.Buffer{}
	logger := &pahoLogger{func(a ...interface{}) { fmt.Fprint(out, a...) }}

	logger.Println("connection up")
	logger.Printf("%d bytes queued", 42)

	s := out.String()
	if !strings.Contains(s, "connection up") || !strings.Contains(s, "42 bytes queued") {
		t.Fatalf("Logger output missing: %v", s)
	}

	// A nil logger silently drops messages.
	empty := &pahoLogger{nil}
	empty.Println("dropped")
	empty.Printf("dropped %d", 1)
}

func getOptions(t *testing.T) *bytebeam.Options {
	credentials, err := bytebeam.LoadCredentials("../test_keys/ca.pem", "../test_keys/device.pem", "../test_keys/device.key")
	if err != nil {
		t.Fatal("Couldn't load credentials")
	}

	options := bytebeam.DefaultOptions(ID, credentials)
	options.LogMQTT = true
	return options
}
