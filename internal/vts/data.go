package vts

import "strings"

// Request is a payload for one VTube Studio public API request. The message
// type names the request on the wire; the matching response type is derived
// by replacing the "Request" suffix with "Response".
type Request interface {
	MessageType() string
}

// ResponseType returns the message type the remote answers req with.
func ResponseType(req Request) string {
	return strings.TrimSuffix(req.MessageType(), "Request") + "Response"
}

// AuthenticationTokenRequest asks the user, inside VTube Studio, to grant
// this plugin a token. The remote only answers once the user clicks allow
// or deny in its popup.
type AuthenticationTokenRequest struct {
	PluginName      string `json:"pluginName"`
	PluginDeveloper string `json:"pluginDeveloper"`
	// PluginIcon is a base64 encoded 128x128 PNG.
	PluginIcon string `json:"pluginIcon,omitempty"`
}

// MessageType implements Request.
func (*AuthenticationTokenRequest) MessageType() string { return "AuthenticationTokenRequest" }

// AuthenticationTokenResponse carries a freshly granted token.
type AuthenticationTokenResponse struct {
	AuthenticationToken string `json:"authenticationToken"`
}

// AuthenticationRequest authenticates the current session with a token.
type AuthenticationRequest struct {
	PluginName          string `json:"pluginName"`
	PluginDeveloper     string `json:"pluginDeveloper"`
	AuthenticationToken string `json:"authenticationToken"`
}

// MessageType implements Request.
func (*AuthenticationRequest) MessageType() string { return "AuthenticationRequest" }

// AuthenticationResponse reports whether the token was accepted.
type AuthenticationResponse struct {
	Authenticated bool   `json:"authenticated"`
	Reason        string `json:"reason"`
}

// HotkeysInCurrentModelRequest lists hotkeys of a model. An empty ModelID
// means the currently loaded model.
type HotkeysInCurrentModelRequest struct {
	ModelID string `json:"modelID,omitempty"`
}

// MessageType implements Request.
func (*HotkeysInCurrentModelRequest) MessageType() string { return "HotkeysInCurrentModelRequest" }

// Hotkey is one hotkey configured on a model.
type Hotkey struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	File        string `json:"file"`
	HotkeyID    string `json:"hotkeyID"`
}

// HotkeysInCurrentModelResponse lists the hotkeys of the requested model.
type HotkeysInCurrentModelResponse struct {
	ModelLoaded      bool     `json:"modelLoaded"`
	ModelName        string   `json:"modelName"`
	ModelID          string   `json:"modelID"`
	AvailableHotkeys []Hotkey `json:"availableHotkeys"`
}

// AvailableModelsRequest lists every model VTube Studio knows about.
type AvailableModelsRequest struct{}

// MessageType implements Request.
func (*AvailableModelsRequest) MessageType() string { return "AvailableModelsRequest" }

// Model is one model available to load.
type Model struct {
	ModelLoaded  bool   `json:"modelLoaded"`
	ModelName    string `json:"modelName"`
	ModelID      string `json:"modelID"`
	VTSModelName string `json:"vtsModelName"`
}

// AvailableModelsResponse lists available models in the order the remote
// reports them.
type AvailableModelsResponse struct {
	NumberOfModels  int     `json:"numberOfModels"`
	AvailableModels []Model `json:"availableModels"`
}

// HotkeyTriggerRequest triggers a hotkey by ID.
type HotkeyTriggerRequest struct {
	HotkeyID string `json:"hotkeyID"`
}

// MessageType implements Request.
func (*HotkeyTriggerRequest) MessageType() string { return "HotkeyTriggerRequest" }

// HotkeyTriggerResponse acknowledges a triggered hotkey.
type HotkeyTriggerResponse struct {
	HotkeyID string `json:"hotkeyID"`
}

// ModelLoadRequest loads a model by ID.
type ModelLoadRequest struct {
	ModelID string `json:"modelID"`
}

// MessageType implements Request.
func (*ModelLoadRequest) MessageType() string { return "ModelLoadRequest" }

// ModelLoadResponse acknowledges a model load.
type ModelLoadResponse struct {
	ModelID string `json:"modelID"`
}

// APIStateRequest is the cheapest request the API offers; it works without
// authentication and is used as a keepalive probe.
type APIStateRequest struct{}

// MessageType implements Request.
func (*APIStateRequest) MessageType() string { return "APIStateRequest" }

// APIStateResponse describes the remote API.
type APIStateResponse struct {
	Active                      bool   `json:"active"`
	VTubeStudioVersion          string `json:"vTubeStudioVersion"`
	CurrentSessionAuthenticated bool   `json:"currentSessionAuthenticated"`
}
