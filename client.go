// Copyright 2018, Andrew C. Young
// License: MIT

package bytebeam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
)

type client struct {
	options   *Options
	mqtt      MQTTClient
	state     *stateStore
	mu        sync.Mutex
	actions   [MaxActions]actionSlot
	statusSeq atomic.Int32
	logSeq    atomic.Int32
	logLevel  atomic.Int32
}

// Connect to the given MQTT server(s)
func (c *client) Connect(ctx context.Context, servers ...string) error {
	if c.IsConnected() {
		return nil
	}
	if c.options.ID == nil || c.options.Credentials == nil {
		return ErrConfigurationError
	}
	if c.options.Clock == nil {
		c.options.Clock = clock.New()
	}

	if NewClient == nil {
		panic("No MQTT client specified. Please import the bytebeam/paho package.")
	}
	c.mqtt = NewClient(c, c.options)

	if c.options.LogMQTT {
		c.mqtt.SetDebugLogger(c.options.DebugLogger)
		c.mqtt.SetInfoLogger(c.options.InfoLogger)
		c.mqtt.SetErrorLogger(c.options.ErrorLogger)
	}

	c.mqtt.SetClientID(c.clientID())

	if c.options.CredentialsProvider != nil {
		c.mqtt.SetCredentialsProvider(c.options.CredentialsProvider)
	}

	if c.options.StateDirectory != "" && c.stateStore() == nil {
		state, err := openStateStore(c.options.StateDirectory)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.state = state
		c.mu.Unlock()
	}

	c.mqtt.SetOnConnectHandler(func(mqtt MQTTClient) {
		err := mqtt.Subscribe(ctx, c.actionsTopic(), c.options.ActionQOS, c.handleActionMessage)
		if err != nil {
			c.errorf("Could not subscribe to actions: %v", err)
			return
		}
		c.resolvePendingUpdate(ctx)
	})

	c.mqtt.SetConnectionLostHandler(func(err error) {
		c.errorf("Connection lost: %v", err)
	})

	return c.mqtt.Connect(ctx, servers...)
}

// IsConnected returns true of the client is currently connected to MQTT server(s)
func (c *client) IsConnected() bool {
	return c.mqtt != nil && c.mqtt.IsConnected()
}

// Disconnect from the MQTT server(s)
func (c *client) Disconnect(ctx context.Context) {
	if c.mqtt != nil {
		c.mqtt.Unsubscribe(ctx, c.actionsTopic())
		if c.mqtt.IsConnected() {
			c.infof("Disconnecting")
			c.mqtt.Disconnect(ctx)
		}
	}
	c.mu.Lock()
	state := c.state
	c.state = nil
	c.mu.Unlock()
	if state != nil {
		if err := state.Close(); err != nil {
			c.errorf("Could not close state store: %v", err)
		}
	}
}

// PublishToStream publishes a JSON array of points to the named stream
func (c *client) PublishToStream(ctx context.Context, stream string, payload []byte) error {
	return c.publish(ctx, c.streamTopic(stream), payload, c.options.StreamQOS)
}

// Internal methods

func (c *client) clientID() string {
	return fmt.Sprintf("%s-%s", c.options.ID.ProjectID, c.options.ID.DeviceID)
}

func (c *client) actionsTopic() string {
	return fmt.Sprintf("/tenants/%s/devices/%s/actions", c.options.ID.ProjectID, c.options.ID.DeviceID)
}

func (c *client) actionStatusTopic() string {
	return fmt.Sprintf("/tenants/%s/devices/%s/action/status", c.options.ID.ProjectID, c.options.ID.DeviceID)
}

func (c *client) streamTopic(stream string) string {
	return fmt.Sprintf("/tenants/%s/devices/%s/events/%s/jsonarray", c.options.ID.ProjectID, c.options.ID.DeviceID, stream)
}

// stateStore snapshots the state store pointer. Disconnect can clear it
// from another goroutine, so callers take one snapshot per operation.
func (c *client) stateStore() *stateStore {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// resolvePendingUpdate reports a firmware update applied before the last
// restart. The record is only cleared once the status publish succeeds, so
// a completion missed while offline is retried on the next connect.
func (c *client) resolvePendingUpdate(ctx context.Context) {
	state := c.stateStore()
	if state == nil {
		return
	}
	actionID, version, ok, err := state.PendingUpdate()
	if err != nil {
		c.errorf("Could not read pending update: %v", err)
		return
	}
	if !ok {
		return
	}
	c.infof("Firmware update %s applied, now running version %s", actionID, version)
	if err := c.PublishActionCompleted(ctx, actionID); err != nil {
		c.errorf("Could not report firmware update %s as completed: %v", actionID, err)
		return
	}
	if err := state.ClearPendingUpdate(); err != nil {
		c.errorf("Could not clear pending update: %v", err)
	}
}

func (c *client) now() time.Time {
	if c.options.Clock != nil {
		return c.options.Clock.Now()
	}
	return time.Now()
}

func (c *client) publish(ctx context.Context, topic string, message []byte, qos uint8) error {
	if c.mqtt == nil {
		return ErrNotConnected
	}
	err := c.mqtt.Publish(ctx, topic, qos, message)
	if err != nil {
		c.debugf("SEND FAILED - Topic: %s, Message Length: %d bytes, Error: %v", topic, len(message), err)
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	c.debugf("SENT - Topic: %s, Message Length: %d bytes", topic, len(message))
	return nil
}

func (c *client) log(logger Logger, format string, v ...interface{}) {
	if logger != nil {
		msg := fmt.Sprintf(format, v...)
		logger(msg)
	}
}

func (c *client) debugf(format string, v ...interface{}) {
	c.log(c.options.DebugLogger, format, v...)
}

func (c *client) infof(format string, v ...interface{}) {
	c.log(c.options.InfoLogger, format, v...)
}

func (c *client) errorf(format string, v ...interface{}) {
	c.log(c.options.ErrorLogger, format, v...)
}
