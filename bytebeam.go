// Copyright 2018, Andrew C. Young
// License: MIT

// This package provides a client for connecting a device to the Bytebeam IoT platform.
package bytebeam

import (
	"context"
	"fmt"
	"net/http"

	"github.com/benbjohnson/clock"
)

// MaxActions is the number of action handlers a Client can hold.
const MaxActions = 10

// States reported to the platform while an action runs.
const (
	ActionStateProgress  = "Progress"
	ActionStateCompleted = "Completed"
	ActionStateFailed    = "Failed"
)

// DefaultCloudLogStream is the stream that device logs are published to.
const DefaultCloudLogStream = "logs"

// ErrNotConnected is returned if a message is published but the client is not connected
var ErrNotConnected = fmt.Errorf("not connected")

// ErrPublishFailed is returned if the client was unable to send the message
var ErrPublishFailed = fmt.Errorf("could not publish message")

// ErrConfigurationError is returned from Connect() if either the ID or Credentials have not been set.
var ErrConfigurationError = fmt.Errorf("required configuration values are mising")

// ErrInvalidAction is returned if an action is registered without a name or a handler.
var ErrInvalidAction = fmt.Errorf("an action requires a name and a handler")

// ErrActionExists is returned if an action with the same name is already registered.
var ErrActionExists = fmt.Errorf("an action with that name already exists")

// ErrActionNotFound is returned if no action with the given name is registered.
var ErrActionNotFound = fmt.Errorf("no action with that name exists")

// ErrTooManyActions is returned if all action handler slots are in use.
var ErrTooManyActions = fmt.Errorf("the action handler table is full")

// ErrNoUpdater is returned if a firmware update action arrives but no Updater was configured.
var ErrNoUpdater = fmt.Errorf("no updater configured")

// Action is a remote command delivered by the platform.
// Payload carries the command's parameters as a JSON document.
type Action struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Payload string `json:"payload"`
	Kind    string `json:"kind"`
}

// ActionHandler executes an action on the device.
// Returning an error reports the action as failed. Handlers that publish
// their own terminal status should return nil.
type ActionHandler func(ctx context.Context, client Client, action Action) error

// FirmwareUpdate describes the firmware image delivered by an update action.
type FirmwareUpdate struct {
	URL     string `json:"url"`
	Version string `json:"version"`
}

// Updater installs a downloaded firmware image on the device.
// Apply receives the path of the downloaded image. Implementations
// normally restart the device; the completion status is published on the
// next connect.
type Updater interface {
	Apply(ctx context.Context, image string, update FirmwareUpdate) error
}

// Logger is used to write log output.  If no Logger is provided, no logging will be performed.
type Logger func(args ...interface{})

// MessageHandler handles messages received on a subscribed topic.
type MessageHandler func(client Client, message []byte)

// MQTTCredentialsProvider should return the current username and password for the MQTT client to use.
type MQTTCredentialsProvider func() (username string, password string)

// MQTTOnConnectHandler is called every time the MQTT client connects, including reconnects.
type MQTTOnConnectHandler func(client MQTTClient)

// MQTTConnectionLostHandler is called when the MQTT connection drops.
type MQTTConnectionLostHandler func(err error)

// MQTTClient represents an MQTT client.
type MQTTClient interface {
	// IsConnected should return true when the client is connected to the server
	IsConnected() bool
	// Connect should connect to the given MQTT server
	Connect(ctx context.Context, servers ...string) error
	// Disconnect should disconnect from the given MQTT server and clean up all client resources
	Disconnect(ctx context.Context) error
	// Publish should publish the given payload to the given topic with the given quality of service level
	Publish(ctx context.Context, topic string, qos uint8, payload interface{}) error
	// Subscribe should subscribe to the given topic with the given quality of service level and message handler
	Subscribe(ctx context.Context, topic string, qos uint8, callback MessageHandler) error
	// Unsubscribe should unsubscribe from the given topic
	Unsubscribe(ctx context.Context, topic string) error
	// SetDebugLogger should set the logger to use for logging debug messages
	SetDebugLogger(logger Logger)
	// SetInfoLogger should set the logger to use for logging information or warning messages
	SetInfoLogger(logger Logger)
	// SetErrorLogger should set the logger to use for logging error or critical messages
	SetErrorLogger(logger Logger)
	// SetClientID should set the MQTT client id
	SetClientID(clientID string)
	// SetCredentialsProvider should set the CredentialsProvider used by the MQTT client
	SetCredentialsProvider(credentialsProvider MQTTCredentialsProvider)
	// SetOnConnectHandler should set the handler called after each successful connect
	SetOnConnectHandler(handler MQTTOnConnectHandler)
	// SetConnectionLostHandler should set the handler called when the connection drops
	SetConnectionLostHandler(handler MQTTConnectionLostHandler)
}

// NewClient creates the underlying MQTT client used by a Client.
// Importing the paho subpackage sets this automatically.
var NewClient func(client Client, options *Options) MQTTClient

// Client represents a device connected to the Bytebeam platform.
type Client interface {
	// Connect to the given MQTT server(s)
	Connect(ctx context.Context, servers ...string) error
	// IsConnected returns true if the client is currently connected to MQTT server(s)
	IsConnected() bool
	// Disconnect from the MQTT server(s)
	Disconnect(ctx context.Context)
	// AddAction registers a handler under the given action name
	AddAction(name string, handler ActionHandler) error
	// RemoveAction unregisters the named action
	RemoveAction(name string) error
	// UpdateAction replaces the handler of the named action
	UpdateAction(name string, handler ActionHandler) error
	// ResetActions unregisters all actions
	ResetActions()
	// Actions returns the names of the registered actions
	Actions() []string
	// PublishToStream publishes a JSON array of points to the named stream
	PublishToStream(ctx context.Context, stream string, payload []byte) error
	// PublishActionStatus reports the state of a running action
	PublishActionStatus(ctx context.Context, actionID string, progress int, state string, errs ...string) error
	// PublishActionCompleted reports an action as finished
	PublishActionCompleted(ctx context.Context, actionID string) error
	// PublishActionFailed reports an action as failed
	PublishActionFailed(ctx context.Context, actionID string, reason string) error
	// PublishActionProgress reports the progress of a running action
	PublishActionProgress(ctx context.Context, actionID string, progress int) error
	// HandleOTA downloads and applies the firmware update described by the action
	HandleOTA(ctx context.Context, action Action) error
	// SetLogLevel changes the cloud log level
	SetLogLevel(level LogLevel)
	// LogLevel returns the current cloud log level
	LogLevel() LogLevel
	// LogPublish sends a log line to the cloud log stream regardless of the log level
	LogPublish(ctx context.Context, level LogLevel, tag string, format string, v ...interface{}) error
	// LogErrorf sends an error log line to the cloud log stream
	LogErrorf(ctx context.Context, tag string, format string, v ...interface{})
	// LogWarnf sends a warning log line to the cloud log stream
	LogWarnf(ctx context.Context, tag string, format string, v ...interface{})
	// LogInfof sends an informational log line to the cloud log stream
	LogInfof(ctx context.Context, tag string, format string, v ...interface{})
	// LogDebugf sends a debug log line to the cloud log stream
	LogDebugf(ctx context.Context, tag string, format string, v ...interface{})
	// LogVerbosef sends a verbose log line to the cloud log stream
	LogVerbosef(ctx context.Context, tag string, format string, v ...interface{})
}

// Options holds the configuration of a Client.
type Options struct {
	// ID identifies this device.
	// This value is required.
	ID *ID
	// Credentials authenticate this device with the platform.
	// This value is required.
	Credentials *Credentials
	// DebugLogger is used to print debug log output.
	DebugLogger Logger
	// InfoLogger is used to print informational log output.
	InfoLogger Logger
	// ErrorLogger is used to print error log output.
	ErrorLogger Logger
	// LogMQTT enables logging of the underlying MQTT client implementation.
	LogMQTT bool
	// QueueDirectory should be a directory writable by the process.
	// If not provided, unsent messages will not be persisted between restarts.
	QueueDirectory string
	// StateDirectory should be a directory writable by the process.
	// If not provided, firmware update completions will not survive a restart.
	StateDirectory string
	// DownloadDirectory is where firmware images are written.
	// If not provided, the system temporary directory is used.
	DownloadDirectory string
	// Updater installs downloaded firmware images.
	// This value is required to handle firmware update actions.
	Updater Updater
	// HTTPClient fetches firmware images.
	// If not provided, a client using the device credentials is used.
	HTTPClient *http.Client
	// CredentialsProvider supplies a username and password for brokers that
	// require them. The platform brokers authenticate with TLS certificates.
	CredentialsProvider MQTTCredentialsProvider
	// ActionQOS sets the QoS level for receiving actions.
	// The suggested value is 1.
	ActionQOS uint8
	// StatusQOS sets the QoS level for action status updates.
	// The suggested value is 1.
	StatusQOS uint8
	// StreamQOS sets the QoS level for stream publishes.
	// The suggested value is 1.
	StreamQOS uint8
	// CloudLogStream is the stream device logs are published to.
	// The default value is "logs".
	CloudLogStream string
	// CloudLogLevel is the initial cloud log level.
	// DefaultOptions sets LogLevelInfo.
	CloudLogLevel LogLevel
	// Clock is used for payload timestamps.
	// A mock clock can be provided for testing.
	Clock clock.Clock
}

// DefaultOptions returns an Options struct with default values set.
func DefaultOptions(id *ID, credentials *Credentials) *Options {
	return &Options{
		ID:             id,
		Credentials:    credentials,
		ActionQOS:      1,
		StatusQOS:      1,
		StreamQOS:      1,
		CloudLogStream: DefaultCloudLogStream,
		CloudLogLevel:  LogLevelInfo,
		Clock:          clock.New(),
	}
}

// New returns a Client with the given options.
func New(options *Options) Client {
	if options == nil {
		options = &Options{}
	}
	c := &client{options: options}
	c.logLevel.Store(int32(options.CloudLogLevel))
	return c
}
