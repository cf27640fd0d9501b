// Package api implements the FleetLock operator HTTP API and WebSocket feed.
//
// Endpoints (all under /api/v1 unless noted):
//
//	GET    /health                         component status
//	GET    /metrics                        JSON snapshot (Prometheus at /metrics)
//	GET    /devices[?selected=true]        device list in registration order
//	GET    /devices/stats                  registry aggregates
//	GET    /devices/{name}                 one device
//	PATCH  /devices/{name}                 {"selected": bool}
//	PUT    /devices/{name}/lock            {"locked": bool}
//	POST   /devices/{name}/launch/{a|b}    one-shot launch
//	POST   /devices/{name}/terminate       one-shot terminate
//	PUT    /selection                      {"selected": bool} for every device
//	PUT    /selected/lock                  {"locked": bool} for selected devices
//	POST   /selected/launch/{a|b}
//	POST   /selected/terminate
//	GET    /commands                       command log
//	GET    /ws                             WebSocket event feed
//
// Command endpoints answer 202 Accepted: the command has been queued on the
// dispatcher, not delivered. Delivery outcomes arrive on the command.completed
// WebSocket channel and in the command log.
//
// # Security
//
// When security.jwt.secret is set every route except /health and the metrics
// endpoints requires a bearer token (see package auth). Viewers may read;
// operators may also change devices.
package api
