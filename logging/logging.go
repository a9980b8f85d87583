// Package logging builds the package-level *zap.SugaredLogger each
// subsystem (merge, follow, indexcache) uses for internal diagnostic
// output — the "structured internal logging" ambient concern, gated
// behind --verbose/HL_VERBOSE and kept entirely separate from §7's
// user-facing error reporting, which stays on plain fmt.Fprintf.
//
// Grounded on iamNilotpal-ignite's zap.SugaredLogger-per-component
// wiring (engine.Config.Logger, storage.Config.Logger); generalized
// from constructor-injected loggers to package-level ones installed via
// SetLogger, since hl has no long-lived component objects to carry a
// Logger field through.
package logging

import "go.uber.org/zap"

// New returns the logger cmd/hl installs into every subsystem. Verbose
// logging writes development-formatted lines to stderr; non-verbose
// runs get a no-op logger, so the cost of a disabled log line is a
// single boolean check rather than a discarded zapcore.Entry.
func New(verbose bool) *zap.SugaredLogger {
	if !verbose {
		return zap.NewNop().Sugar()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
