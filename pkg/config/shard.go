package config

// DataSourceCfg describes one physical database, reachable through database/sql.
type DataSourceCfg struct {
	Driver string `json:"driver" toml:"driver" yaml:"driver"`
	DSN    string `json:"dsn" toml:"dsn" yaml:"dsn"`

	MaxOpenConns int `json:"max_open_conns" toml:"max_open_conns" yaml:"max_open_conns"`
	PingRetries  int `json:"ping_retries" toml:"ping_retries" yaml:"ping_retries"`
}
