package engine

import (
	"context"
	"fmt"
)

// Devtools actions for EventDevtools.
const (
	DevtoolsOpen    = "open"
	DevtoolsFixFont = "fixFont"
)

// devtoolsToggle shows the panel, initialising it on first use.
const devtoolsToggle = `(function () {
  if (typeof eruda === "undefined") return;
  if (!eruda._isInit) { eruda.init(); eruda.show(); return; }
  if (eruda._devTools && eruda._devTools._isShow) { eruda.hide(); } else { eruda.show(); }
})();`

// devtoolsFontFix forces a monospace font inside the panel.
const devtoolsFontFix = `(function () {
  if (typeof eruda === "undefined" || !eruda._shadowRoot) return;
  const style = document.createElement("style");
  style.textContent = ".eruda-dev-tools * { font-family: monospace !important; }";
  eruda._shadowRoot.appendChild(style);
})();`

// OpenDevTools toggles the devtools panel. The first call after a
// navigation injects the panel source.
func (e *Engine) OpenDevTools(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openDevTools(ctx)
}

func (e *Engine) openDevTools(ctx context.Context) error {
	if e.session.DevtoolsLoaded {
		if err := e.deliverer.Deliver(ctx, devtoolsToggle); err != nil {
			return fmt.Errorf("open devtools: %w", err)
		}
		if e.session.DevtoolsFontFixed {
			if err := e.deliverer.Deliver(ctx, devtoolsFontFix); err != nil {
				return fmt.Errorf("open devtools: font fix: %w", err)
			}
		}
		return nil
	}

	if e.devtools == "" {
		return ErrDevtoolsUnavailable
	}
	if err := e.deliverer.Deliver(ctx, e.devtools); err != nil {
		return fmt.Errorf("open devtools: load source: %w", err)
	}
	if err := e.deliverer.Deliver(ctx, devtoolsToggle); err != nil {
		return fmt.Errorf("open devtools: %w", err)
	}
	e.session.DevtoolsLoaded = true
	return nil
}

// FixDevtoolsFont applies the panel font fix once per page. It does nothing
// until the panel has been loaded.
func (e *Engine) FixDevtoolsFont(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fixDevtoolsFont(ctx)
}

func (e *Engine) fixDevtoolsFont(ctx context.Context) error {
	if !e.session.DevtoolsLoaded || e.session.DevtoolsFontFixed {
		return nil
	}
	if err := e.deliverer.Deliver(ctx, devtoolsFontFix); err != nil {
		return fmt.Errorf("fix devtools font: %w", err)
	}
	e.session.DevtoolsFontFixed = true
	return nil
}
