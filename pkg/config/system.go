package config

// SlackConfig holds resolved Slack finalize-notifier configuration.
type SlackConfig struct {
	Enabled  bool   // whether the Finalizer posts a completion summary to Slack
	TokenEnv string // env var name containing the bot token (default: "SLACK_BOT_TOKEN")
	Channel  string // channel id or name to post to
}

// DatabaseConfig holds resolved Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
}
