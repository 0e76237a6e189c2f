// Package inspector defines the messages exchanged with the plugin's
// settings panel. Every message is a JSON object tagged by "type".
package inspector

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound message tags.
const (
	TypeGetVTState       = "GET_VT_STATE"
	TypeAuthorize        = "AUTHORIZE"
	TypeGetHotkeyOptions = "GET_HOTKEY_OPTIONS"
	TypeGetModelOptions  = "GET_MODEL_OPTIONS"
)

// Outbound message tags.
const (
	TypeVTState       = "VT_STATE"
	TypeHotkeyOptions = "HOTKEY_OPTIONS"
	TypeModelOptions  = "MODEL_OPTIONS"
)

// ErrUnknownType is returned by Parse for a tag outside the inbound set.
var ErrUnknownType = errors.New("unknown inspector message type")

// Message is one inbound message. The concrete types are GetVTState,
// Authorize, GetHotkeyOptions and GetModelOptions.
type Message interface {
	inspectorMessage()
}

// GetVTState asks for the current connection phase.
type GetVTState struct{}

// Authorize asks the plugin to request a new token from VTube Studio.
type Authorize struct{}

// GetHotkeyOptions asks for the hotkeys of a model. A nil ModelID means the
// model currently loaded.
type GetHotkeyOptions struct {
	ModelID *string `json:"model_id"`
}

// GetModelOptions asks for every available model.
type GetModelOptions struct{}

func (GetVTState) inspectorMessage()       {}
func (Authorize) inspectorMessage()        {}
func (GetHotkeyOptions) inspectorMessage() {}
func (GetModelOptions) inspectorMessage()  {}

// Parse decodes a tagged inbound message.
func Parse(raw json.RawMessage) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode inspector message: %w", err)
	}

	switch head.Type {
	case TypeGetVTState:
		return GetVTState{}, nil
	case TypeAuthorize:
		return Authorize{}, nil
	case TypeGetModelOptions:
		return GetModelOptions{}, nil
	case TypeGetHotkeyOptions:
		var msg GetHotkeyOptions
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}

		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
}

// SelectOption is one entry of a dropdown in the inspector.
type SelectOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// VTState reports the connection phase. State is the phase's wire name.
type VTState struct {
	State string
}

// MarshalJSON implements json.Marshaler.
func (m VTState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		State string `json:"state"`
	}{TypeVTState, m.State})
}

// HotkeyOptions lists the hotkeys of a model.
type HotkeyOptions struct {
	Options []SelectOption
}

// MarshalJSON implements json.Marshaler.
func (m HotkeyOptions) MarshalJSON() ([]byte, error) {
	return marshalOptions(TypeHotkeyOptions, m.Options)
}

// ModelOptions lists the available models.
type ModelOptions struct {
	Options []SelectOption
}

// MarshalJSON implements json.Marshaler.
func (m ModelOptions) MarshalJSON() ([]byte, error) {
	return marshalOptions(TypeModelOptions, m.Options)
}

func marshalOptions(tag string, options []SelectOption) ([]byte, error) {
	if options == nil {
		options = []SelectOption{}
	}

	return json.Marshal(struct {
		Type    string         `json:"type"`
		Options []SelectOption `json:"options"`
	}{tag, options})
}
