// Copyright 2018, Andrew C. Young
// License: MIT

package bytebeam

import (
	"context"
	"log"
)

func ExampleClient() {
	ctx := context.Background()

	// Your client must include the paho package
	// to use the default Eclipse Paho MQTT client.
	//
	// include 	_ "github.com/vaelen/bytebeam/paho"

	id := &ID{
		ProjectID: "my-project",
		DeviceID:  "my-device",
	}

	credentials, err := LoadCredentials("ca.pem", "device.pem", "device.key")
	if err != nil {
		panic("Couldn't load credentials")
	}

	options := DefaultOptions(id, credentials)
	options.DebugLogger = log.Println
	options.InfoLogger = log.Println
	options.ErrorLogger = log.Println
	options.StateDirectory = "/var/lib/bytebeam"
	// Set options.Updater to the component that flashes
	// downloaded firmware images on this device.

	client := New(options)

	client.AddAction("update_firmware", OTAHandler)
	client.AddAction("reboot", func(ctx context.Context, c Client, a Action) error {
		// Do something here to schedule the reboot before reporting completion
		return c.PublishActionCompleted(ctx, a.ID)
	})

	err = client.Connect(ctx, "ssl://mqtt.example.com:8883")
	if err != nil {
		panic("Couldn't connect to server")
	}
	defer client.Disconnect(ctx)

	// This publishes to /tenants/my-project/devices/my-device/events/device_shadow/jsonarray
	client.PublishToStream(ctx, "device_shadow", []byte(`[{"status":"online"}]`))
}
