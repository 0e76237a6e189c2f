package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
)

type fakeSender struct {
	requests []vts.Request
	err      error
}

func (f *fakeSender) Send(_ context.Context, req vts.Request, _ any) error {
	f.requests = append(f.requests, req)
	return f.err
}

func ptr(s string) *string { return &s }

func TestParse(t *testing.T) {
	tests := []struct {
		name           string
		actionID       string
		raw            string
		want           Action
		wantRecognized bool
		wantErr        bool
	}{
		{name: "hotkey", actionID: "trigger_hotkey", raw: `{"hotkey_id":"H1"}`, want: TriggerHotkey{HotkeyID: ptr("H1")}, wantRecognized: true},
		{name: "hotkey null", actionID: "trigger_hotkey", raw: `{"hotkey_id":null}`, want: TriggerHotkey{}, wantRecognized: true},
		{name: "hotkey missing", actionID: "trigger_hotkey", raw: `{}`, want: TriggerHotkey{}, wantRecognized: true},
		{name: "hotkey extra fields", actionID: "trigger_hotkey", raw: `{"hotkey_id":"H1","label":"x"}`, want: TriggerHotkey{HotkeyID: ptr("H1")}, wantRecognized: true},
		{name: "model", actionID: "switch_model", raw: `{"model_id":"M1"}`, want: SwitchModel{ModelID: ptr("M1")}, wantRecognized: true},
		{name: "no properties", actionID: "switch_model", raw: ``, want: SwitchModel{}, wantRecognized: true},
		{name: "wrong type", actionID: "trigger_hotkey", raw: `{"hotkey_id":42}`, wantRecognized: true, wantErr: true},
		{name: "not an object", actionID: "switch_model", raw: `"M1"`, wantRecognized: true, wantErr: true},
		{name: "unknown", actionID: "open_browser", raw: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, recognized, err := Parse(tt.actionID, json.RawMessage(tt.raw))

			if recognized != tt.wantRecognized {
				t.Fatalf("recognized = %v, want %v", recognized, tt.wantRecognized)
			}

			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDispatch_SendsRequest(t *testing.T) {
	tests := []struct {
		actionID string
		raw      string
		want     vts.Request
	}{
		{actionID: "trigger_hotkey", raw: `{"hotkey_id":"H1"}`, want: &vts.HotkeyTriggerRequest{HotkeyID: "H1"}},
		{actionID: "switch_model", raw: `{"model_id":"M1"}`, want: &vts.ModelLoadRequest{ModelID: "M1"}},
	}

	for _, tt := range tests {
		t.Run(tt.actionID, func(t *testing.T) {
			sender := &fakeSender{}
			NewDispatcher(sender, slog.New(slog.DiscardHandler)).Dispatch(context.Background(), tt.actionID, json.RawMessage(tt.raw))

			if len(sender.requests) != 1 || !reflect.DeepEqual(sender.requests[0], tt.want) {
				t.Fatalf("requests = %#v, want [%#v]", sender.requests, tt.want)
			}
		})
	}
}

func TestDispatch_NoRequest(t *testing.T) {
	tests := []struct {
		name      string
		actionID  string
		raw       string
		wantLevel string
	}{
		{name: "unknown action", actionID: "open_browser", raw: `{}`, wantLevel: "level=DEBUG"},
		{name: "null hotkey", actionID: "trigger_hotkey", raw: `{"hotkey_id":null}`, wantLevel: "level=DEBUG"},
		{name: "missing model", actionID: "switch_model", raw: `{}`, wantLevel: "level=DEBUG"},
		{name: "malformed", actionID: "trigger_hotkey", raw: `{"hotkey_id":[1]}`, wantLevel: "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			sender := &fakeSender{}

			NewDispatcher(sender, logger).Dispatch(context.Background(), tt.actionID, json.RawMessage(tt.raw))

			if len(sender.requests) != 0 {
				t.Fatalf("requests = %#v, want none", sender.requests)
			}

			if !strings.Contains(buf.String(), tt.wantLevel) {
				t.Errorf("log = %q, want %s entry", buf.String(), tt.wantLevel)
			}
		})
	}
}

func TestDispatch_FailureLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sender := &fakeSender{err: errors.New("connection lost")}

	NewDispatcher(sender, logger).Dispatch(context.Background(), "switch_model", json.RawMessage(`{"model_id":"M1"}`))

	if !strings.Contains(buf.String(), "tile action failed") || !strings.Contains(buf.String(), "connection lost") {
		t.Errorf("log = %q", buf.String())
	}
}
