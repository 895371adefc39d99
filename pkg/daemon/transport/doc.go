/*
Package transport exposes the daemon's Container/Image/Volume/Network/
System RPC surface as a gorilla/mux JSON-over-HTTP router rather than
generated gRPC stubs. See DESIGN.md for the rationale.

# Routes

	POST   /v1/containers                     Container.Create
	GET    /v1/containers                      Container.List
	GET    /v1/containers/{id}                  Container.Inspect
	POST   /v1/containers/{id}/start            Container.Start
	POST   /v1/containers/{id}/stop              Container.Stop
	POST   /v1/containers/{id}/restart           Container.Restart
	DELETE /v1/containers/{id}                  Container.Remove
	POST   /v1/containers/{id}/pause             Container.Pause
	POST   /v1/containers/{id}/unpause           Container.Unpause
	POST   /v1/containers/{id}/exec              Container.Exec
	POST   /v1/containers/{id}/update            Container.Update
	GET    /v1/containers/{id}/stats             Container.Stats
	GET    /v1/containers/{id}/logs              Container.Logs

	GET    /v1/images                          Image.List
	POST   /v1/images/pull                      Image.Pull
	GET    /v1/images/{id}                      Image.Inspect
	DELETE /v1/images/{id}                      Image.Remove

	POST   /v1/volumes                         Volume.Create
	GET    /v1/volumes                         Volume.List
	GET    /v1/volumes/{id}                     Volume.Inspect
	DELETE /v1/volumes/{id}                     Volume.Remove

	POST   /v1/networks                        Network.Create
	GET    /v1/networks                        Network.List
	GET    /v1/networks/{id}                    Network.Inspect
	DELETE /v1/networks/{id}                    Network.Remove
	POST   /v1/networks/{id}/connect            Network.Connect
	POST   /v1/networks/{id}/disconnect         Network.Disconnect

	GET    /v1/system/version                   System.Version
	GET    /v1/system/info                      System.Info
	GET    /v1/system/ping                       System.Ping
	GET    /v1/system/events                    System.Events (chunked NDJSON)
	GET    /v1/system/df                        System.DiskUsage

Every handler returns ErrNotAccepting (503) once the daemon has begun
shutdown, and records nexuscore_daemon_rpc_requests_total /
nexuscore_daemon_rpc_request_duration_seconds per route.
*/
package transport
