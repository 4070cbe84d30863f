// Package logging provides structured logging for stepcheck.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation. Verification attempts, step navigation and the
// classifier server all log through a [Logger], so one log file can be
// filtered by attempt or step after the fact.
//
// # Thread Safety
//
// [Logger] is safe for concurrent use. Child loggers created via With*
// methods share the underlying writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	attemptLogger := logger.WithComponent("capture").WithAttempt(id).WithStep(2)
//	attemptLogger.Info("classifier responded", "found", true, "confidence", 0.91)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"classifier responded","component":"capture","attempt_id":"...","step_index":2,"found":true,"confidence":0.91}
package logging
