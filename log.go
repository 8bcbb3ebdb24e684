// Copyright 2018, Andrew C. Young
// License: MIT

package bytebeam

import (
	"context"
	"encoding/json"
	"fmt"
)

// LogLevel determines which device logs are forwarded to the platform.
type LogLevel int32

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelVerbose
)

// String returns the wire form of the level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelVerbose:
		return "VERBOSE"
	default:
		return "NONE"
	}
}

type logEntry struct {
	Timestamp int64  `json:"timestamp"`
	Sequence  int32  `json:"sequence"`
	Level     string `json:"level"`
	Tag       string `json:"tag"`
	Message   string `json:"message"`
}

// SetLogLevel changes the cloud log level.
func (c *client) SetLogLevel(level LogLevel) {
	c.logLevel.Store(int32(level))
}

// LogLevel returns the current cloud log level.
func (c *client) LogLevel() LogLevel {
	return LogLevel(c.logLevel.Load())
}

// LogPublish sends a log line to the cloud log stream regardless of the
// current log level.
func (c *client) LogPublish(ctx context.Context, level LogLevel, tag string, format string, v ...interface{}) error {
	entry := []logEntry{{
		Timestamp: c.now().UnixMilli(),
		Sequence:  c.logSeq.Inc(),
		Level:     level.String(),
		Tag:       tag,
		Message:   fmt.Sprintf(format, v...),
	}}
	message, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	stream := c.options.CloudLogStream
	if stream == "" {
		stream = DefaultCloudLogStream
	}
	return c.PublishToStream(ctx, stream, message)
}

// cloudLog gates on the current level, publishes, and mirrors the line to
// the matching local logger. Publish failures are reported locally instead
// of returned.
func (c *client) cloudLog(ctx context.Context, level LogLevel, local Logger, tag string, format string, v ...interface{}) {
	if level == LogLevelNone || level > c.LogLevel() {
		return
	}
	if err := c.LogPublish(ctx, level, tag, format, v...); err != nil {
		c.errorf("Could not publish %s log: %v", level, err)
		return
	}
	c.log(local, "[%s] "+format, append([]interface{}{tag}, v...)...)
}

// LogErrorf sends an error log line to the cloud log stream.
func (c *client) LogErrorf(ctx context.Context, tag string, format string, v ...interface{}) {
	c.cloudLog(ctx, LogLevelError, c.options.ErrorLogger, tag, format, v...)
}

// LogWarnf sends a warning log line to the cloud log stream.
func (c *client) LogWarnf(ctx context.Context, tag string, format string, v ...interface{}) {
	c.cloudLog(ctx, LogLevelWarn, c.options.InfoLogger, tag, format, v...)
}

// LogInfof sends an informational log line to the cloud log stream.
func (c *client) LogInfof(ctx context.Context, tag string, format string, v ...interface{}) {
	c.cloudLog(ctx, LogLevelInfo, c.options.InfoLogger, tag, format, v...)
}

// LogDebugf sends a debug log line to the cloud log stream.
func (c *client) LogDebugf(ctx context.Context, tag string, format string, v ...interface{}) {
	c.cloudLog(ctx, LogLevelDebug, c.options.DebugLogger, tag, format, v...)
}

// LogVerbosef sends a verbose log line to the cloud log stream.
func (c *client) LogVerbosef(ctx context.Context, tag string, format string, v ...interface{}) {
	c.cloudLog(ctx, LogLevelVerbose, c.options.DebugLogger, tag, format, v...)
}
