// Package tilepad implements the plugin side of the Tilepad host protocol.
//
// The host launches the plugin with a plugin id and a WebSocket URL. Every
// frame is a JSON object tagged by "type".
package tilepad

import "encoding/json"

// Plugin to host message tags.
const (
	typeRegisterPlugin  = "RegisterPlugin"
	typeGetProperties   = "GetProperties"
	typeSetProperties   = "SetProperties"
	typeSendToInspector = "SendToInspector"
)

// Host to plugin message tags.
const (
	typeRegistered        = "Registered"
	typeProperties        = "Properties"
	typeTileClicked       = "TileClicked"
	typeRecvFromInspector = "RecvFromInspector"
	typeInspectorOpen     = "InspectorOpen"
	typeInspectorClose    = "InspectorClose"
)

// InspectorContext identifies one open inspector.
type InspectorContext struct {
	ProfileID string `json:"profile_id"`
	FolderID  string `json:"folder_id"`
	PluginID  string `json:"plugin_id"`
	TileID    string `json:"tile_id"`
}

// TileInteractionContext identifies the tile that was clicked.
type TileInteractionContext struct {
	DeviceID string `json:"device_id"`
	PluginID string `json:"plugin_id"`
	ActionID string `json:"action_id"`
	TileID   string `json:"tile_id"`
}

type registerPlugin struct {
	Type     string `json:"type"`
	PluginID string `json:"plugin_id"`
}

type getProperties struct {
	Type string `json:"type"`
}

type setProperties struct {
	Type       string `json:"type"`
	Properties any    `json:"properties"`
	Partial    bool   `json:"partial"`
}

type sendToInspector struct {
	Type    string           `json:"type"`
	Ctx     InspectorContext `json:"ctx"`
	Message any              `json:"message"`
}

// inbound is the union of every host to plugin message.
type inbound struct {
	Type       string          `json:"type"`
	PluginID   string          `json:"plugin_id,omitempty"`
	Ctx        json.RawMessage `json:"ctx,omitempty"`
	Properties json.RawMessage `json:"properties,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
}
