// Package delivery executes code in the target context through a transport
// whose command length is capped.
//
// Every command is a "javascript: " URL whose body is the percent-encoded
// payload. Code that fits in one command is sent as is. Longer code is sent
// as a pending delivery session:
//
//	void(globalThis.ID = '');                 // initialize accumulator
//	void(globalThis.ID += `...slice...`);     // one per slice, in order
//	try{void Function(globalThis.ID)()}finally{delete globalThis.ID}
//
// Slices hold at most ChunkSize characters and are cut shorter so that no
// encoded command exceeds the length cap.
//
// ID is a fresh random identifier for each chunked delivery. The transport
// is one-way: a failed Send aborts the sequence and whatever was accumulated
// stays in the target's global namespace.
package delivery
