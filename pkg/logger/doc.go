// Package logger provides the structured logging interface used across ebookdl.
//
// It wraps zerolog: the global logger writes human-readable lines to stderr
// (so stdout stays free for command output) and, when logging.file is set,
// JSON lines to that file as well.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("url", u).Info("Starting download")
//
// Components take a Logger in their constructors; tests pass
// logger.NewTestLogger() and assert on the captured messages.
package logger
