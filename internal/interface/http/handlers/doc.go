// Package handlers holds the HTTP pieces that know nothing about the
// roster: dependency health probes and reusable middleware.
//
//	health := handlers.NewHealth("v1.0.0")
//	health.Require("database", handlers.Ping(conn))
//	health.Optional("cache", handlers.Ping(cache))
package handlers
