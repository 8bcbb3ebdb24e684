// Copyright 2018, Andrew C. Young
// License: MIT

package bytebeam_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vaelen/bytebeam"
)

func TestLogLevelString(t *testing.T) {
	levels := map[bytebeam.LogLevel]string{
		bytebeam.LogLevelNone:    "NONE",
		bytebeam.LogLevelError:   "ERROR",
		bytebeam.LogLevelWarn:    "WARN",
		bytebeam.LogLevelInfo:    "INFO",
		bytebeam.LogLevelDebug:   "DEBUG",
		bytebeam.LogLevelVerbose: "VERBOSE",
	}
	for level, expected := range levels {
		if level.String() != expected {
			t.Fatalf("Wrong name for level %d: %v", int(level), level.String())
		}
	}
}

func TestCloudLog(t *testing.T) {
	ctx := context.Background()
	initMockClient()
	credentials := getCredentials(t)
	options, mock := getOptions(t, credentials)

	infoLog := &bytes.Buffer{}
	options.InfoLogger = func(a ...interface{}) { fmt.Fprint(infoLog, a...) }

	client := getClient(t, options)
	doConnectionTest(t, client, "ssl://mqtt.example.com:8883")

	if client.LogLevel() != bytebeam.LogLevelInfo {
		t.Fatalf("Wrong initial log level: %v", client.LogLevel())
	}

	mock.Add(time.Second)
	client.LogInfof(ctx, "sensors", "temperature %d", 27)

	line := lastLogLine(t)
	if line.Level != "INFO" {
		t.Fatalf("Wrong level published: %v", line.Level)
	}
	if line.Tag != "sensors" {
		t.Fatalf("Wrong tag published: %v", line.Tag)
	}
	if line.Message != "temperature 27" {
		t.Fatalf("Wrong message published: %v", line.Message)
	}
	if line.Timestamp != 1000 {
		t.Fatalf("Wrong timestamp published: %v", line.Timestamp)
	}
	if line.Sequence != 1 {
		t.Fatalf("Wrong sequence published: %v", line.Sequence)
	}
	if !strings.Contains(infoLog.String(), "[sensors] temperature 27") {
		t.Fatalf("Log line not mirrored locally: %v", infoLog.String())
	}

	// Debug is above the current level and stays on the device.
	client.LogDebugf(ctx, "sensors", "raw reading")
	if len(mockClient.Messages[LogsTopic]) != 1 {
		t.Fatalf("A gated log line was published: %v", len(mockClient.Messages[LogsTopic]))
	}

	client.SetLogLevel(bytebeam.LogLevelDebug)
	client.LogDebugf(ctx, "sensors", "raw reading")
	if len(mockClient.Messages[LogsTopic]) != 2 {
		t.Fatalf("Wrong number of log lines published: %v", len(mockClient.Messages[LogsTopic]))
	}
	line = lastLogLine(t)
	if line.Level != "DEBUG" || line.Sequence != 2 {
		t.Fatalf("Wrong log line published: %+v", line)
	}

	// Verbose is still gated.
	client.LogVerbosef(ctx, "sensors", "very raw reading")
	if len(mockClient.Messages[LogsTopic]) != 2 {
		t.Fatalf("A gated log line was published: %v", len(mockClient.Messages[LogsTopic]))
	}

	// Level none shuts cloud logging off entirely.
	client.SetLogLevel(bytebeam.LogLevelNone)
	client.LogErrorf(ctx, "sensors", "dropped")
	if len(mockClient.Messages[LogsTopic]) != 2 {
		t.Fatalf("A gated log line was published: %v", len(mockClient.Messages[LogsTopic]))
	}

	// LogPublish bypasses the gate.
	if err := client.LogPublish(ctx, bytebeam.LogLevelError, "sensors", "forced"); err != nil {
		t.Fatalf("Couldn't publish log line: %v", err)
	}
	line = lastLogLine(t)
	if line.Level != "ERROR" || line.Sequence != 3 || line.Message != "forced" {
		t.Fatalf("Wrong log line published: %+v", line)
	}

	doDisconnectTest(t, client)
}

func TestCloudLogStreamOverride(t *testing.T) {
	ctx := context.Background()
	initMockClient()
	credentials := getCredentials(t)
	options, _ := getOptions(t, credentials)
	options.CloudLogStream = "syslog"
	client := getClient(t, options)
	doConnectionTest(t, client, "ssl://mqtt.example.com:8883")

	client.LogInfof(ctx, "system", "booted")

	topic := "/tenants/test-project/devices/test-device/events/syslog/jsonarray"
	if len(mockClient.Messages[topic]) != 1 {
		t.Fatalf("Log line not published to the configured stream: %v", mockClient.Messages)
	}
	if len(mockClient.Messages[LogsTopic]) != 0 {
		t.Fatal("Log line published to the default stream as well")
	}

	doDisconnectTest(t, client)
}

type logLine struct {
	Timestamp int64  `json:"timestamp"`
	Sequence  int32  `json:"sequence"`
	Level     string `json:"level"`
	Tag       string `json:"tag"`
	Message   string `json:"message"`
}

func lastLogLine(t *testing.T) logLine {
	l := mockClient.Messages[LogsTopic]
	if len(l) == 0 {
		t.Fatal("No log line was published")
	}
	var entries []logLine
	if err := json.Unmarshal(l[len(l)-1].([]byte), &entries); err != nil {
		t.Fatalf("Couldn't parse log line: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Wrong number of log entries: %v", len(entries))
	}
	return entries[0]
}
