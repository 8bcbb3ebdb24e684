// Copyright 2018, Andrew C. Young
// License: MIT

package bytebeam

import (
	"context"
	"encoding/json"
	"fmt"
)

type actionSlot struct {
	name    string
	handler ActionHandler
}

// AddAction registers a handler under the given action name.
// Action names are unique. The table holds at most MaxActions handlers.
func (c *client) AddAction(name string, handler ActionHandler) error {
	if name == "" || handler == nil {
		return ErrInvalidAction
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	free := -1
	for i := range c.actions {
		if c.actions[i].name == name {
			return ErrActionExists
		}
		if free < 0 && c.actions[i].name == "" {
			free = i
		}
	}
	if free < 0 {
		return ErrTooManyActions
	}
	c.actions[free] = actionSlot{name: name, handler: handler}
	return nil
}

// RemoveAction unregisters the named action.
func (c *client) RemoveAction(name string) error {
	if name == "" {
		return ErrActionNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.actions {
		if c.actions[i].name == name {
			c.actions[i] = actionSlot{}
			return nil
		}
	}
	return ErrActionNotFound
}

// UpdateAction replaces the handler of the named action.
func (c *client) UpdateAction(name string, handler ActionHandler) error {
	if handler == nil {
		return ErrInvalidAction
	}
	if name == "" {
		return ErrActionNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.actions {
		if c.actions[i].name == name {
			c.actions[i].handler = handler
			return nil
		}
	}
	return ErrActionNotFound
}

// ResetActions unregisters all actions.
func (c *client) ResetActions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.actions {
		c.actions[i] = actionSlot{}
	}
}

// Actions returns the names of the registered actions in slot order.
func (c *client) Actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, MaxActions)
	for i := range c.actions {
		if c.actions[i].name != "" {
			names = append(names, c.actions[i].name)
		}
	}
	return names
}

func (c *client) lookupAction(name string) ActionHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.actions {
		if c.actions[i].name != "" && c.actions[i].name == name {
			return c.actions[i].handler
		}
	}
	return nil
}

// handleActionMessage runs for every message on the actions topic.
func (c *client) handleActionMessage(_ Client, message []byte) {
	var action Action
	if err := json.Unmarshal(message, &action); err != nil {
		c.errorf("Could not parse action: %v", err)
		return
	}
	if action.Name == "" || action.ID == "" {
		c.errorf("Malformed action: %s", message)
		return
	}

	ctx := context.Background()
	c.infof("Received action %s (%s)", action.Name, action.ID)

	handler := c.lookupAction(action.Name)
	if handler == nil {
		c.errorf("No handler registered for action %s", action.Name)
		c.PublishActionFailed(ctx, action.ID, fmt.Sprintf("no handler registered for action %q", action.Name))
		return
	}

	if err := handler(ctx, c, action); err != nil {
		c.errorf("Action %s (%s) failed: %v", action.Name, action.ID, err)
		c.PublishActionFailed(ctx, action.ID, err.Error())
	}
}

type actionStatus struct {
	Timestamp int64    `json:"timestamp"`
	Sequence  int32    `json:"sequence"`
	State     string   `json:"state"`
	Errors    []string `json:"errors"`
	ID        string   `json:"id"`
	Progress  int      `json:"progress"`
}

// PublishActionStatus reports the state of a running action.
func (c *client) PublishActionStatus(ctx context.Context, actionID string, progress int, state string, errs ...string) error {
	if errs == nil {
		errs = []string{}
	}
	status := []actionStatus{{
		Timestamp: c.now().UnixMilli(),
		Sequence:  c.statusSeq.Inc(),
		State:     state,
		Errors:    errs,
		ID:        actionID,
		Progress:  progress,
	}}
	message, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.publish(ctx, c.actionStatusTopic(), message, c.options.StatusQOS)
}

// PublishActionCompleted reports an action as finished.
func (c *client) PublishActionCompleted(ctx context.Context, actionID string) error {
	return c.PublishActionStatus(ctx, actionID, 100, ActionStateCompleted)
}

// PublishActionFailed reports an action as failed.
func (c *client) PublishActionFailed(ctx context.Context, actionID string, reason string) error {
	return c.PublishActionStatus(ctx, actionID, 0, ActionStateFailed, reason)
}

// PublishActionProgress reports the progress of a running action.
func (c *client) PublishActionProgress(ctx context.Context, actionID string, progress int) error {
	return c.PublishActionStatus(ctx, actionID, progress, ActionStateProgress)
}
