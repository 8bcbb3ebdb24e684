// Copyright 2018, Andrew C. Young
// License: MIT

// Package paho provides a bytebeam.MQTTClient implementation that uses the Eclipse Paho MQTT client.
// To use the client, you must import this package.
package paho

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vaelen/bytebeam"
)

// MQTTClient is an implementation of MQTTClient that uses Eclipse Paho.
// To use the client, you must include this package.
type MQTTClient struct {
	client                bytebeam.Client
	options               *bytebeam.Options
	clientID              string
	paho                  mqtt.Client
	credentialsProvider   bytebeam.MQTTCredentialsProvider
	onConnectHandler      bytebeam.MQTTOnConnectHandler
	connectionLostHandler bytebeam.MQTTConnectionLostHandler
}

// NewClient creates an MQTTClient instance using Eclipse Paho.
func NewClient(client bytebeam.Client, options *bytebeam.Options) bytebeam.MQTTClient {
	return &MQTTClient{
		client:  client,
		options: options,
	}
}

// This method is automatically called if the package is included
func init() {
	if bytebeam.NewClient == nil {
		bytebeam.NewClient = NewClient
	}
}

// IsConnected should return true when the client is connected to the server
func (c *MQTTClient) IsConnected() bool {
	if c.paho == nil {
		return false
	}
	return c.paho.IsConnected()
}

// Connect should connect to the given MQTT server
func (c *MQTTClient) Connect(ctx context.Context, servers ...string) error {

	clientOptions := mqtt.NewClientOptions()

	var store mqtt.Store
	if c.options.QueueDirectory == "" {
		store = mqtt.NewMemoryStore()
	} else {
		store = mqtt.NewFileStore(c.options.QueueDirectory)
	}

	if c.options.Credentials != nil {
		clientOptions.SetTLSConfig(c.options.Credentials.TLSConfig())
	}

	clientOptions.SetCleanSession(false)
	clientOptions.SetAutoReconnect(true)
	clientOptions.SetOrderMatters(false)
	clientOptions.SetProtocolVersion(4)
	clientOptions.SetClientID(c.clientID)
	clientOptions.SetStore(store)
	if c.credentialsProvider != nil {
		clientOptions.SetCredentialsProvider(func() (string, string) { return c.credentialsProvider() })
	}
	clientOptions.SetOnConnectHandler(func(i mqtt.Client) {
		if c.options.InfoLogger != nil {
			c.options.InfoLogger("Connected")
		}
		if c.onConnectHandler != nil {
			c.onConnectHandler(c)
		}
	})
	clientOptions.SetConnectionLostHandler(func(client mqtt.Client, e error) {
		if c.connectionLostHandler != nil {
			c.connectionLostHandler(e)
			return
		}
		if c.options.ErrorLogger != nil {
			c.options.ErrorLogger(fmt.Sprintf("Connection Lost. Error: %v", e))
		}
	})

	for _, server := range servers {
		clientOptions.AddBroker(server)
	}

	c.paho = mqtt.NewClient(clientOptions)

	token := c.paho.Connect()
	token.Wait()
	return token.Error()

}

// Disconnect will disconnect from the given MQTT server and clean up all client resources
func (c *MQTTClient) Disconnect(ctx context.Context) error {
	if c.IsConnected() {
		c.paho.Disconnect(1000)
		c.paho = nil
	}
	return nil
}

// Publish will publish the given payload to the given topic with the given quality of service level
func (c *MQTTClient) Publish(ctx context.Context, topic string, qos uint8, payload interface{}) error {
	if !c.IsConnected() {
		return bytebeam.ErrNotConnected
	}
	token := c.paho.Publish(topic, qos, true, payload)
	token.Wait()
	return token.Error()
}

// Subscribe will subscribe to the given topic with the given quality of service level and message handler
func (c *MQTTClient) Subscribe(ctx context.Context, topic string, qos uint8, callback bytebeam.MessageHandler) error {
	if !c.IsConnected() {
		return bytebeam.ErrNotConnected
	}
	handler := func(i mqtt.Client, message mqtt.Message) {
		if c.options.DebugLogger != nil {
			c.options.DebugLogger(fmt.Sprintf("RECEIVED - Topic: %s, Message Length: %d bytes", message.Topic(), len(message.Payload())))
		}
		if callback != nil {
			callback(c.client, message.Payload())
		}
	}
	token := c.paho.Subscribe(topic, qos, handler)
	token.Wait()
	return token.Error()
}

// Unsubscribe will unsubscribe from the given topic
func (c *MQTTClient) Unsubscribe(ctx context.Context, topic string) error {
	if !c.IsConnected() {
		return bytebeam.ErrNotConnected
	}
	token := c.paho.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

// SetDebugLogger sets the logger to use for logging debug messages
func (c *MQTTClient) SetDebugLogger(logger bytebeam.Logger) {
	mqtt.DEBUG = &pahoLogger{logger}
}

// SetInfoLogger sets the logger to use for logging information or warning messages
func (c *MQTTClient) SetInfoLogger(logger bytebeam.Logger) {
	mqtt.WARN = &pahoLogger{logger}
}

// SetErrorLogger sets the logger to use for logging error or critical messages
func (c *MQTTClient) SetErrorLogger(logger bytebeam.Logger) {
	mqtt.CRITICAL = &pahoLogger{logger}
	mqtt.ERROR = &pahoLogger{logger}
}

// SetClientID sets the MQTT client id
func (c *MQTTClient) SetClientID(clientID string) {
	c.clientID = clientID
}

// SetCredentialsProvider sets the CredentialsProvider used by the MQTT client
func (c *MQTTClient) SetCredentialsProvider(credentialsProvider bytebeam.MQTTCredentialsProvider) {
	c.credentialsProvider = credentialsProvider
}

// SetOnConnectHandler sets the handler called after each successful connect
func (c *MQTTClient) SetOnConnectHandler(handler bytebeam.MQTTOnConnectHandler) {
	c.onConnectHandler = handler
}

// SetConnectionLostHandler sets the handler called when the connection drops
func (c *MQTTClient) SetConnectionLostHandler(handler bytebeam.MQTTConnectionLostHandler) {
	c.connectionLostHandler = handler
}

type pahoLogger struct {
	logger bytebeam.Logger
}

func (l *pahoLogger) Println(v ...interface{}) {
	if l.logger != nil {
		l.logger(v...)
	}
}

func (l *pahoLogger) Printf(format string, v ...interface{}) {
	if l.logger != nil {
		l.logger(fmt.Sprintf(format, v...))
	}
}
