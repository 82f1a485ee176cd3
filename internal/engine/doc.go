// Package engine implements the userscript injection engine.
//
// The engine reacts to two event sources:
//   - navigation completed: matching scripts are encoded once, persisted,
//     and delivered into the page in store order
//   - control request: install, list and delete requests coming from the
//     page are applied to the store and answered through the same delivery
//     channel
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Host callbacks arrive on arbitrary goroutines and are turned into Events
// with Enqueue. Engine.Run dequeues them one at a time, so store access,
// matching and delivery never overlap. The synchronous HandleNavigation and
// HandleControl methods take the same lock and may be called directly by
// callers that already serialize their requests (the CLI, tests).
//
// Session State:
// The devtools panel flags live on Session, owned by the Engine. Every
// navigation resets them, whether or not any script matched.
//
// Error Policy:
// Nothing in this package returns a user-facing failure except through
// delivered commands: an alert for an invalid install, console.error for a
// failed list or delete. Encoding and transport failures are logged and the
// affected script is skipped.
package engine
