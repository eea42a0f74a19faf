package config

// Config is the umbrella configuration object that encapsulates system-wide
// defaults, the socket-persona registry, and infrastructure settings. This
// is the primary object returned by Initialize() and threaded through the
// rest of the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// System-wide defaults (cooldowns, timeouts, AI provider selection, ...).
	Defaults *Defaults

	// SocketRegistry holds the loaded persona descriptors participants may
	// reference by id.
	SocketRegistry *SocketRegistry

	// Database, retention, Slack and dashboard settings.
	Database     DatabaseConfig
	Retention    *RetentionConfig
	Slack        *SlackConfig
	DashboardURL string

	// AllowedWSOrigins lists additional Origin header patterns accepted by
	// the WebSocket upgrade check, beyond the dashboard's own origin.
	AllowedWSOrigins []string
}

// ConfigStats summarizes loaded configuration for startup logging.
type ConfigStats struct {
	Sockets int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{Sockets: len(c.SocketRegistry.GetAll())}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetSocket retrieves a socket persona descriptor by id.
// Convenience wrapper around SocketRegistry.Get().
func (c *Config) GetSocket(id string) (*SocketConfig, error) {
	return c.SocketRegistry.Get(id)
}
