/*
Package log provides structured logging for vigil using zerolog.

Call Init once at startup, then derive component loggers:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("scheduler")
	logger.Info().Str("container", name).Msg("Container recovered")

Console output is the default and is meant for a terminal. Set LOG_JSON to
get one JSON object per line for log shippers.
*/
package log
