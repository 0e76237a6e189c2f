// Package plugin connects Tilepad host callbacks to the VTube Studio client.
//
// Callbacks never block on VTube Studio: remote work is started on its own
// goroutine and the callback returns.
package plugin

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/musher-dev/tilepad-vtstudio/internal/action"
	"github.com/musher-dev/tilepad-vtstudio/internal/auth"
	"github.com/musher-dev/tilepad-vtstudio/internal/inspector"
	"github.com/musher-dev/tilepad-vtstudio/internal/state"
	"github.com/musher-dev/tilepad-vtstudio/internal/tilepad"
	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
)

// Sender issues supervised requests.
type Sender interface {
	Send(ctx context.Context, req vts.Request, out any) error
}

// Config holds the plugin's collaborators.
type Config struct {
	State      *state.State
	Auth       *auth.Manager
	Requests   Sender
	Dispatcher *action.Dispatcher
	// FallbackToken returns a token stored outside the host, or "". It is
	// consulted when the host settings carry none.
	FallbackToken func() string
	Logger        *slog.Logger
}

// Plugin implements tilepad.Plugin.
type Plugin struct {
	ctx        context.Context //nolint:containedctx // bounds background work started by callbacks
	state      *state.State
	auth       *auth.Manager
	requests   Sender
	dispatcher *action.Dispatcher
	fallback   func() string
	logger     *slog.Logger

	wg sync.WaitGroup
}

var _ tilepad.Plugin = (*Plugin)(nil)

// New creates a Plugin. Work started by callbacks is cancelled with ctx.
func New(ctx context.Context, cfg Config) *Plugin {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Plugin{
		ctx:        ctx,
		state:      cfg.State,
		auth:       cfg.Auth,
		requests:   cfg.Requests,
		dispatcher: cfg.Dispatcher,
		fallback:   cfg.FallbackToken,
		logger:     logger,
	}
}

// Wait blocks until all background work started by callbacks has finished.
func (p *Plugin) Wait() {
	p.wg.Wait()
}

func (p *Plugin) spawn(fn func(ctx context.Context)) {
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		fn(p.ctx)
	}()
}

// OnProperties attaches the session and authenticates with the stored token.
func (p *Plugin) OnProperties(session *tilepad.Session, properties json.RawMessage) {
	p.state.AttachSession(session)

	var settings state.Settings
	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &settings); err != nil {
			p.logger.Error("invalid plugin properties", slog.String("error", err.Error()))
			return
		}
	}

	token := ""
	if settings.AccessToken != nil {
		token = *settings.AccessToken
	}

	if token == "" && p.fallback != nil {
		if token = p.fallback(); token != "" {
			p.logger.Info("restoring access token from keyring")
			p.state.SetToken(token)
		}
	}

	if token == "" {
		p.state.CacheToken("")
		p.auth.NoToken()
		return
	}

	p.state.CacheToken(token)

	if p.state.Phase() == state.Authorized {
		return
	}

	p.spawn(func(ctx context.Context) {
		p.auth.Authenticate(ctx, token)
	})
}

// OnInspectorOpen attaches the inspector so it receives phase changes.
func (p *Plugin) OnInspectorOpen(_ *tilepad.Session, handle *tilepad.Inspector) {
	p.state.AttachInspector(handle)
}

// OnInspectorClose detaches the inspector.
func (p *Plugin) OnInspectorClose(_ *tilepad.Session, _ tilepad.InspectorContext) {
	p.state.DetachInspector()
}

// OnInspectorMessage answers a request from the inspector. Replies go to
// the inspector that asked.
func (p *Plugin) OnInspectorMessage(_ *tilepad.Session, handle *tilepad.Inspector, message json.RawMessage) {
	msg, err := inspector.Parse(message)
	if err != nil {
		p.logger.Error("invalid inspector message", slog.String("error", err.Error()))
		return
	}

	switch m := msg.(type) {
	case inspector.GetVTState:
		p.reply(handle, inspector.VTState{State: p.state.Phase().String()})
	case inspector.Authorize:
		p.spawn(p.authorize)
	case inspector.GetHotkeyOptions:
		p.spawn(func(ctx context.Context) {
			p.hotkeyOptions(ctx, handle, m.ModelID)
		})
	case inspector.GetModelOptions:
		p.spawn(func(ctx context.Context) {
			p.modelOptions(ctx, handle)
		})
	}
}

// OnTileClicked dispatches the tile's action.
func (p *Plugin) OnTileClicked(_ *tilepad.Session, tile tilepad.TileInteractionContext, properties json.RawMessage) {
	p.spawn(func(ctx context.Context) {
		p.dispatcher.Dispatch(ctx, tile.ActionID, properties)
	})
}

func (p *Plugin) authorize(ctx context.Context) {
	token, err := p.auth.RequestToken(ctx)
	if err != nil {
		return
	}

	p.state.SetToken(token)
}

func (p *Plugin) hotkeyOptions(ctx context.Context, handle state.InspectorHandle, modelID *string) {
	req := &vts.HotkeysInCurrentModelRequest{}
	if modelID != nil {
		req.ModelID = *modelID
	}

	var resp vts.HotkeysInCurrentModelResponse
	if err := p.requests.Send(ctx, req, &resp); err != nil {
		p.logger.Error("failed to list hotkeys", slog.String("error", err.Error()))
		return
	}

	options := make([]inspector.SelectOption, 0, len(resp.AvailableHotkeys))
	for _, hk := range resp.AvailableHotkeys {
		options = append(options, inspector.SelectOption{Label: hk.Name, Value: hk.HotkeyID})
	}

	p.reply(handle, inspector.HotkeyOptions{Options: options})
}

func (p *Plugin) modelOptions(ctx context.Context, handle state.InspectorHandle) {
	var resp vts.AvailableModelsResponse
	if err := p.requests.Send(ctx, &vts.AvailableModelsRequest{}, &resp); err != nil {
		p.logger.Error("failed to list models", slog.String("error", err.Error()))
		return
	}

	options := make([]inspector.SelectOption, 0, len(resp.AvailableModels))
	for _, model := range resp.AvailableModels {
		options = append(options, inspector.SelectOption{Label: model.ModelName, Value: model.ModelID})
	}

	p.reply(handle, inspector.ModelOptions{Options: options})
}

func (p *Plugin) reply(handle state.InspectorHandle, message any) {
	if err := handle.Send(message); err != nil {
		p.logger.Warn("failed to reply to inspector", slog.String("error", err.Error()))
	}
}
