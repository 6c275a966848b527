// Package log provides structured protocol logging for the HTP-1 client.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events: text frames on the control websocket, connection
// state changes, and errors. It is separate from operational logging
// (slog) - protocol capture provides a complete machine-readable trace of
// the device conversation for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/htp1/living-room.hlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/htp1/living-room.hlog"),
//	)
//
// # File Format
//
// Log files use CBOR encoding with .hlog extension. The htp1log CLI tool
// provides viewing and summarizing capabilities.
package log
