// Package action turns tile clicks into VTube Studio requests.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
)

// Registered action identifiers.
const (
	IDTriggerHotkey = "trigger_hotkey"
	IDSwitchModel   = "switch_model"
)

// Action is a parsed tile action. The concrete types are TriggerHotkey and
// SwitchModel.
type Action interface {
	// Request returns the VTube Studio request for the action, or nil when
	// the tile is not configured.
	Request() vts.Request
}

// TriggerHotkey fires a hotkey of the current model.
type TriggerHotkey struct {
	HotkeyID *string `json:"hotkey_id"`
}

// Request implements Action.
func (a TriggerHotkey) Request() vts.Request {
	if a.HotkeyID == nil {
		return nil
	}

	return &vts.HotkeyTriggerRequest{HotkeyID: *a.HotkeyID}
}

// SwitchModel loads a model.
type SwitchModel struct {
	ModelID *string `json:"model_id"`
}

// Request implements Action.
func (a SwitchModel) Request() vts.Request {
	if a.ModelID == nil {
		return nil
	}

	return &vts.ModelLoadRequest{ModelID: *a.ModelID}
}

// Parse decodes the tile properties for actionID. recognized is false for
// identifiers outside the registry, in which case the other results are
// zero.
func Parse(actionID string, properties json.RawMessage) (act Action, recognized bool, err error) {
	switch actionID {
	case IDTriggerHotkey:
		var a TriggerHotkey
		if err := decode(properties, &a); err != nil {
			return nil, true, fmt.Errorf("decode %s properties: %w", actionID, err)
		}

		return a, true, nil
	case IDSwitchModel:
		var a SwitchModel
		if err := decode(properties, &a); err != nil {
			return nil, true, fmt.Errorf("decode %s properties: %w", actionID, err)
		}

		return a, true, nil
	default:
		return nil, false, nil
	}
}

func decode(properties json.RawMessage, v any) error {
	if len(properties) == 0 {
		return nil
	}

	return json.Unmarshal(properties, v)
}

// Sender issues supervised requests.
type Sender interface {
	Send(ctx context.Context, req vts.Request, out any) error
}

// Dispatcher routes tile clicks to VTube Studio.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{sender: sender, logger: logger}
}

// Dispatch runs the action behind a click. Nothing is reported back: the
// host has no channel for tile failures, so every outcome is logged.
func (d *Dispatcher) Dispatch(ctx context.Context, actionID string, properties json.RawMessage) {
	logger := d.logger.With(slog.String("action_id", actionID))

	act, recognized, err := Parse(actionID, properties)
	if !recognized {
		logger.Debug("unknown tile action")
		return
	}

	if err != nil {
		logger.Error("invalid tile properties", slog.String("error", err.Error()))
		return
	}

	req := act.Request()
	if req == nil {
		logger.Debug("tile action not configured")
		return
	}

	if err := d.sender.Send(ctx, req, nil); err != nil {
		logger.Error("tile action failed", slog.String("error", err.Error()))
		return
	}

	logger.Debug("tile action sent", slog.String("request", req.MessageType()))
}
