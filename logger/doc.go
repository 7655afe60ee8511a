// Package logger provides structured logging for wmorder using zerolog.
//
// It supports JSON and console output, log level configuration and
// component-scoped loggers with structured fields. Logs go to stderr by
// default so that stdout carries only the build order.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("scheduler")
//	log.Info("unit released", logger.Fields(logger.FieldUnit, dir))
package logger
