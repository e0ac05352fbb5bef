/*
Package health runs active health probes for containers the runtime cannot
health-check itself.

Three checkers are available: HTTP (2xx/3xx is healthy), TCP (the port
accepts a connection) and Exec (the command exits 0). A Prober runs one
loop per configured probe and keeps a Status per container:

  - a success marks the container healthy
  - failures during StartPeriod are ignored
  - Retries consecutive failures mark it unhealthy

Start runs every probe once before it returns, so the first poll after a
restart sees a probe result. A probe still inside its start period keeps
reporting starting. Each change of
reported health is emitted on Events as a "health_status: <health>" action,
the same shape Docker uses, so the scheduler re-observes the container.

Probes are declared in the PROBES_FILE YAML document:

	probes:
	  - container: shop_bi_api
	    type: http
	    target: http://127.0.0.1:8080/health
	    interval: 30s
	    timeout: 5s
	    retries: 3
*/
package health
