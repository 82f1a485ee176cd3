package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/roach88/userscript/internal/delivery"
	"github.com/roach88/userscript/internal/script"
)

// Control actions accepted from the page.
const (
	ActionInstallScript    = "installScript"
	ActionGetIDs           = "getIds"
	ActionDeleteScriptByID = "deleteScriptById"
)

// InvalidScriptMessage is shown to the user when an install payload is rejected.
const InvalidScriptMessage = "Invalid UserScript"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HandleControl applies a control request and returns the callback command
// the caller should execute, or "" when there is none.
//
// The only callback is the alert for an invalid install. List and delete
// report through the deliverer themselves, and their failures are reported
// as console errors in the page rather than returned.
func (e *Engine) HandleControl(ctx context.Context, action, payload string) string {
	callback, _ := e.Dispatch(ctx, action, payload)
	return callback
}

// Dispatch is HandleControl that also returns the failure, if any, as a
// *ControlError.
func (e *Engine) Dispatch(ctx context.Context, action, payload string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatch(ctx, e.logger, action, payload)
}

func (e *Engine) dispatch(ctx context.Context, log *zap.Logger, action, payload string) (string, error) {
	log = log.With(zap.String("action", action))

	var (
		callback string
		err      error
	)
	switch action {
	case ActionInstallScript:
		e.metrics.ObserveControl(action)
		callback, err = e.installScript(ctx, log, payload)
	case ActionGetIDs:
		e.metrics.ObserveControl(action)
		err = e.getIDs(ctx)
	case ActionDeleteScriptByID:
		e.metrics.ObserveControl(action)
		err = e.deleteScripts(ctx, log, payload)
	default:
		e.metrics.ObserveControl("unknown")
		err = newControlError(ErrCodeUnknownAction, action, "unsupported action", nil)
	}

	if err != nil {
		log.Warn("control request failed", zap.Error(err))
	}
	return callback, err
}

func (e *Engine) installScript(ctx context.Context, log *zap.Logger, payload string) (string, error) {
	s, err := script.Parse(payload)
	if err != nil {
		return delivery.Alert(InvalidScriptMessage),
			newControlError(ErrCodeInvalidScript, ActionInstallScript, "parse userscript", err)
	}

	if err := e.store.InsertAll(ctx, s); err != nil {
		return "", newControlError(ErrCodeStore, ActionInstallScript, "store script", err)
	}

	log.Info("script installed", zap.String("script", s.ID), zap.Strings("match", s.Match))
	return "", nil
}

func (e *Engine) getIDs(ctx context.Context) error {
	scripts, err := e.store.GetAll(ctx)
	if err != nil {
		e.reportError(ctx, err)
		return newControlError(ErrCodeStore, ActionGetIDs, "list scripts", err)
	}

	quoted := make([]string, 0, len(scripts))
	for _, s := range scripts {
		quoted = append(quoted, quoteSingle(s.ID))
	}
	code := "console.log([" + strings.Join(quoted, ",") + "])"
	if err := e.deliverer.Deliver(ctx, code); err != nil {
		return fmt.Errorf("deliver id list: %w", err)
	}
	return nil
}

func (e *Engine) deleteScripts(ctx context.Context, log *zap.Logger, payload string) error {
	ids, err := ParseIDList(payload)
	if err != nil {
		e.reportError(ctx, err)
		return newControlError(ErrCodeInvalidPayload, ActionDeleteScriptByID, "parse id list", err)
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	scripts, err := e.store.GetAll(ctx)
	if err != nil {
		e.reportError(ctx, err)
		return newControlError(ErrCodeStore, ActionDeleteScriptByID, "list scripts", err)
	}

	for _, s := range scripts {
		if !wanted[s.ID] {
			continue
		}
		n, err := e.store.Delete(ctx, s)
		if err != nil {
			e.reportError(ctx, err)
			return newControlError(ErrCodeStore, ActionDeleteScriptByID, "delete "+s.ID, err)
		}
		if n != 1 {
			continue
		}
		log.Info("script deleted", zap.String("script", s.ID))
		if err := e.deliverer.Deliver(ctx, delivery.ConsoleLog(s.ID+" deleted!")); err != nil {
			return fmt.Errorf("deliver delete confirmation: %w", err)
		}
	}
	return nil
}

// reportError shows err in the page console. Delivery failures are only logged.
func (e *Engine) reportError(ctx context.Context, err error) {
	if derr := e.deliverer.Deliver(ctx, delivery.ConsoleError(err.Error())); derr != nil {
		e.logger.Error("deliver console error", zap.Error(derr))
	}
}

// ErrNotIDList is returned by ParseIDList for payloads that are not a JSON
// array of strings.
var ErrNotIDList = errors.New("payload is not a JSON array of strings")

// ParseIDList parses a payload of the form ["a","b"]. Quotes inside ids are
// backslash-escaped.
func ParseIDList(payload string) ([]string, error) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, ErrNotIDList
	}
	var ids []string
	if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotIDList, err)
	}
	return ids, nil
}

// quoteSingle returns s as a single-quoted JavaScript string literal.
func quoteSingle(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
