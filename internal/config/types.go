package config

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	AdminToken    string
	Challonge     ChallongeConfig
	Slack         SlackConfig
	Turso         TursoConfig
	ProjectID     string
}

type ChallongeConfig struct {
	APIKey string
}

type SlackConfig struct {
	Token     string
	ChannelID string
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}
