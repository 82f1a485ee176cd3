// Package host connects the engine to a Chrome browser over the DevTools
// protocol.
//
// A Browser plays three roles:
//   - transport: Send evaluates javascript: commands in the page
//   - navigation source: main-frame loads and same-document navigations
//     become engine navigation events
//   - control source: the page calls a binding (window.<name>) with a JSON
//     {"action": ..., "payload": ...} string, which becomes a control or
//     devtools event
package host
