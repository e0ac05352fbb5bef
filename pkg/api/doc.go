/*
Package api serves the monitor's HTTP endpoints.

	GET /health    liveness, always 200 while the process runs
	GET /ready     200 when the runtime and state store are healthy, else 503
	GET /state     the current snapshot in the persisted document format
	GET /metrics   Prometheus exposition

The server is optional and only started when METRICS_ADDR is set. Listen
binds the address up front so a bad address fails startup; Serve runs
until Shutdown.
*/
package api
