// Package logging provides structured logging for the bnode tools.
//
// # Overview
//
// Loggers take a message plus alternating key/value pairs and write one
// line per call, either as text or as JSON:
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stderr",
//	})
//
//	logger.Info("node stored", "id", 42, "size", 1830)
//
// Text output:
//
//	2026-10-19T10:30:00Z [info] node stored id=42 size=1830
//
// JSON output:
//
//	{"id":42,"level":"info","msg":"node stored","size":1830,"ts":"2026-10-19T10:30:00Z"}
//
// # Contextual Fields
//
// WithFields returns a child logger that adds the given pairs to every
// line it writes:
//
//	storeLogger := logger.WithFields("store", "file", "path", path)
//
// For tests, use logging.NewNop or logging.NewWithWriter with a buffer.
package logging
