// Package api provides the HTTP REST API for road dodge sessions.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions            create a session ({"config_id": "classic"})
//   - GET    /api/sessions            list sessions (sort=created|accessed, order=asc|desc, limit=N)
//   - GET    /api/sessions/unified    several sessions at once (sessionIds=a,b or configName=x)
//   - GET    /api/sessions/{id}       session info with state and config
//   - DELETE /api/sessions/{id}       delete a session
//
// Game:
//   - GET  /api/sessions/{id}/state   current GameState
//   - POST /api/sessions/{id}/drive   run frames holding keys
//   - POST /api/sessions/{id}/reset   start a fresh run
//   - GET  /api/sessions/{id}/events  paginated event history (page, limit, order, type)
//
// Configuration:
//   - GET  /api/configs               list configurations
//   - GET  /api/configs/{name}        one configuration
//   - POST /api/configs               save a configuration
//
// Other:
//   - GET /api/health                 liveness and session count
//   - GET /ws?session={id}            live state stream, see package websocket
//
// Drive request body:
//
//	{
//	  "up": true,        // hold the up key
//	  "down": false,     // hold the down key; both cancel out
//	  "frames": 30,      // default 1, capped at engine.MaxFramesPerCall
//	  "dt": 0.0166,      // seconds per frame, default 1/60, capped at 0.1
//	  "auto": false,     // let the autopilot steer instead
//	  "reset": false     // reset the run before driving
//	}
//
// The response is a service.DriveResult: frames executed, the stop reason
// code (completed|game_over|out_of_bounds), start and end lane, health
// before and after, hits, audio cues, events, the nearest threat and a
// steering hint.
//
// Errors are returned as JSON, {"error": "message"}, with 400 for invalid
// requests or configs, 404 for unknown sessions or configs and 500
// otherwise.
package api
