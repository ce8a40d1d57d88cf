// Package websocket pushes live game state to watchers of a session.
//
// A central Hub owns every connection. Clients join a session by connecting
// to /ws?session=<id>; from then on each drive or reset of that session is
// broadcast to them as a JSON Message carrying the full GameState and the
// audio cues the frames produced, so a remote viewer can render the road and
// play the same sounds.
//
// Connections are watch-only. Anything a client sends is read and discarded
// to keep ping/pong deadlines moving.
//
// Only the Hub's Run loop changes the client sets. Broadcasts are queued on a
// buffered channel and dropped with a log line when the queue is full, so a
// slow HTTP handler never blocks on a slow watcher.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	// In an HTTP handler
//	hub.ServeWS(w, r, sessionID, state)
//
//	// After the session changes
//	hub.BroadcastState(sessionID, state, audio)
//
// Watch is the matching client used by the desktop viewer.
package websocket
