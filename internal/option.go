package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config           *Config
	ephemeralCursors bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithEphemeralCursors keeps repository cursors in memory instead of the
// state database. Every restart then re-emits the recent history window.
func WithEphemeralCursors(on bool) Option {
	return func(a *application) {
		a.ephemeralCursors = on
	}
}
