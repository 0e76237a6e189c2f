package tilepad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// readLimit caps one inbound frame. Settings and inspector payloads can
// exceed the library default.
const readLimit = 1 << 20

// Plugin receives host callbacks. Callbacks run one at a time on the read
// goroutine in arrival order and must return promptly.
type Plugin interface {
	OnProperties(session *Session, properties json.RawMessage)
	OnInspectorOpen(session *Session, inspector *Inspector)
	OnInspectorClose(session *Session, ctx InspectorContext)
	OnInspectorMessage(session *Session, inspector *Inspector, message json.RawMessage)
	OnTileClicked(session *Session, ctx TileInteractionContext, properties json.RawMessage)
}

// Options configures Run.
type Options struct {
	URL        string
	PluginID   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Run connects to the host, registers the plugin and delivers host messages
// to plugin until ctx is done or the host closes the connection.
func Run(ctx context.Context, opts Options, plugin Plugin) error {
	if opts.URL == "" {
		return errors.New("tilepad: connect url is required")
	}

	if opts.PluginID == "" {
		return errors.New("tilepad: plugin id is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("plugin_id", opts.PluginID))

	conn, _, err := websocket.Dial(ctx, opts.URL, &websocket.DialOptions{HTTPClient: opts.HTTPClient})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHostUnreachable, err)
	}
	defer conn.CloseNow()

	conn.SetReadLimit(readLimit)

	session := newSession(opts.PluginID, conn)
	defer session.close()

	if err := session.write(registerPlugin{Type: typeRegisterPlugin, PluginID: opts.PluginID}); err != nil {
		return fmt.Errorf("register plugin: %w", err)
	}

	logger.Debug("registering with tilepad host")

	for {
		var msg inbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}

			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				logger.Info("tilepad host closed the connection")
				return nil
			}

			return fmt.Errorf("read from tilepad host: %w", err)
		}

		dispatch(session, plugin, msg, logger)
	}
}

func dispatch(session *Session, plugin Plugin, msg inbound, logger *slog.Logger) {
	switch msg.Type {
	case typeRegistered:
		logger.Info("registered with tilepad host")

		if err := session.RequestProperties(); err != nil {
			logger.Error("failed to request plugin properties", slog.String("error", err.Error()))
		}
	case typeProperties:
		plugin.OnProperties(session, msg.Properties)
	case typeTileClicked:
		var tile TileInteractionContext
		if err := json.Unmarshal(msg.Ctx, &tile); err != nil {
			logger.Error("invalid tile context", slog.String("error", err.Error()))
			return
		}

		plugin.OnTileClicked(session, tile, msg.Properties)
	case typeRecvFromInspector, typeInspectorOpen, typeInspectorClose:
		var ictx InspectorContext
		if err := json.Unmarshal(msg.Ctx, &ictx); err != nil {
			logger.Error("invalid inspector context", slog.String("type", msg.Type), slog.String("error", err.Error()))
			return
		}

		switch msg.Type {
		case typeRecvFromInspector:
			plugin.OnInspectorMessage(session, NewInspector(session, ictx), msg.Message)
		case typeInspectorOpen:
			plugin.OnInspectorOpen(session, NewInspector(session, ictx))
		default:
			plugin.OnInspectorClose(session, ictx)
		}
	default:
		logger.Debug("ignoring host message", slog.String("type", msg.Type))
	}
}
