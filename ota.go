// Copyright 2018, Andrew C. Young
// License: MIT

package bytebeam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// otaProgressStep is the granularity of download progress reports.
const otaProgressStep = 5

// OTAHandler is an ActionHandler that runs the firmware update flow.
// Register it under the action name that delivers firmware updates:
//
//	client.AddAction("update_firmware", bytebeam.OTAHandler)
func OTAHandler(ctx context.Context, client Client, action Action) error {
	return client.HandleOTA(ctx, action)
}

// HandleOTA downloads the firmware image described by the action, reports
// download progress, and hands the image to the configured Updater.
// When a state directory is configured the completion status is published
// on the next connect, after the updater has restarted the device.
func (c *client) HandleOTA(ctx context.Context, action Action) error {
	if c.options.Updater == nil {
		c.PublishActionFailed(ctx, action.ID, ErrNoUpdater.Error())
		return ErrNoUpdater
	}

	var update FirmwareUpdate
	if err := json.Unmarshal([]byte(action.Payload), &update); err != nil {
		err = fmt.Errorf("could not parse firmware update: %w", err)
		c.PublishActionFailed(ctx, action.ID, err.Error())
		return err
	}
	if update.URL == "" {
		err := fmt.Errorf("firmware update has no url")
		c.PublishActionFailed(ctx, action.ID, err.Error())
		return err
	}

	c.infof("Downloading firmware version %s from %s", update.Version, update.URL)
	image, err := c.downloadFirmware(ctx, action.ID, &update)
	if err != nil {
		c.PublishActionFailed(ctx, action.ID, err.Error())
		return err
	}

	c.infof("Applying firmware version %s", update.Version)
	if err := c.options.Updater.Apply(ctx, image, update); err != nil {
		err = fmt.Errorf("could not apply firmware: %w", err)
		c.PublishActionFailed(ctx, action.ID, err.Error())
		return err
	}

	if state := c.stateStore(); state != nil {
		err := state.SetPendingUpdate(action.ID, update.Version)
		if err == nil {
			return nil
		}
		c.errorf("Could not record pending update: %v", err)
	}
	return c.PublishActionCompleted(ctx, action.ID)
}

func (c *client) downloadFirmware(ctx context.Context, actionID string, update *FirmwareUpdate) (string, error) {
	httpClient := c.options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
		if c.options.Credentials != nil {
			httpClient.Transport = &http.Transport{
				TLSClientConfig: c.options.Credentials.TLSConfig(),
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, update.URL, nil)
	if err != nil {
		return "", fmt.Errorf("could not build firmware request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not fetch firmware: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("firmware server returned %s", resp.Status)
	}

	dir := c.options.DownloadDirectory
	if dir == "" {
		dir = os.TempDir()
	}
	image := filepath.Join(dir, fmt.Sprintf("firmware-%s.bin", actionID))

	out, err := os.Create(image)
	if err != nil {
		return "", fmt.Errorf("could not create image file: %w", err)
	}

	err = c.copyWithProgress(ctx, actionID, out, resp.Body, resp.ContentLength)
	cerr := out.Close()
	if err != nil {
		return "", err
	}
	if cerr != nil {
		return "", fmt.Errorf("could not write image file: %w", cerr)
	}

	return image, nil
}

// copyWithProgress streams the image to disk, reporting progress at
// otaProgressStep boundaries. A failed progress publish does not abort
// the download.
func (c *client) copyWithProgress(ctx context.Context, actionID string, dst io.Writer, src io.Reader, total int64) error {
	buf := make([]byte, 32*1024)
	var downloaded int64
	reported := 0
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("could not write image: %w", werr)
			}
			downloaded += int64(n)
			if total > 0 {
				percent := int(downloaded * 100 / total)
				for reported+otaProgressStep <= percent {
					reported += otaProgressStep
					if perr := c.PublishActionProgress(ctx, actionID, reported); perr != nil {
						c.errorf("Could not publish download progress: %v", perr)
					}
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("could not read image: %w", err)
		}
	}
	if reported < 100 {
		if perr := c.PublishActionProgress(ctx, actionID, 100); perr != nil {
			c.errorf("Could not publish download progress: %v", perr)
		}
	}
	return nil
}
