// Copyright 2018, Andrew C. Young
// License: MIT

package bytebeam_test

import (
	"github.com/vaelen/bytebeam"
)

func ExampleMockMQTTClient() {
	var mockClient *bytebeam.MockMQTTClient
	bytebeam.NewClient = func(c bytebeam.Client, o *bytebeam.Options) bytebeam.MQTTClient {
		mockClient = bytebeam.NewMockClient(c, o)
		return mockClient
	}

	// Put your test code here

}
