package host

import (
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/roach88/userscript/internal/engine"
)

// Devtools actions accepted on the control binding in addition to the
// engine's control actions.
const (
	ActionOpenDevTools    = "openDevTools"
	ActionFixDevtoolsFont = "fixDevtoolsFont"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// controlMessage is the JSON string the page passes to the binding.
type controlMessage struct {
	Action  string `json:"action"`
	Payload string `json:"payload"`
}

// NavigationURL extracts the URL of a main-frame navigation event.
//
// Only *page.EventFrameNavigated and *page.EventNavigatedWithinDocument are
// navigation events; any other value is logged as an error and yields
// ("", false). Subframe navigations yield ("", false) silently.
func (b *Browser) NavigationURL(ev any) (string, bool) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return "", false
		}
		b.setMainFrame(e.Frame.ID)
		return e.Frame.URL + e.Frame.URLFragment, true

	case *page.EventNavigatedWithinDocument:
		if !b.isMainFrame(e.FrameID) {
			return "", false
		}
		return e.URL, true

	default:
		b.logger.Error("not a navigation event", zap.String("type", typeName(ev)))
		return "", false
	}
}

// ControlRequest decodes a binding payload into an engine event.
// A payload that is not a JSON object with a string "action" is logged as
// an error and yields false.
func (b *Browser) ControlRequest(raw string) (engine.Event, bool) {
	var msg controlMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		b.logger.Error("decode control request", zap.Error(err), zap.Int("bytes", len(raw)))
		return engine.Event{}, false
	}
	if msg.Action == "" {
		b.logger.Error("control request without action")
		return engine.Event{}, false
	}

	switch msg.Action {
	case ActionOpenDevTools:
		return engine.DevtoolsEvent(engine.DevtoolsOpen), true
	case ActionFixDevtoolsFont:
		return engine.DevtoolsEvent(engine.DevtoolsFixFont), true
	default:
		return engine.ControlEvent(msg.Action, msg.Payload), true
	}
}

func (b *Browser) setMainFrame(id cdp.FrameID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mainFrame = id
}

func (b *Browser) isMainFrame(id cdp.FrameID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	// Before the first main-frame commit every frame is a candidate.
	return b.mainFrame == "" || b.mainFrame == id
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
