package config

import (
	httpapi "github.com/garyjia/event-budget/internal/interfaces/http"
	"github.com/garyjia/event-budget/pkg/database"
	"github.com/garyjia/event-budget/pkg/utils"
)

// DatabaseOptions converts the database section for pkg/database
func (c *Config) DatabaseOptions() database.Config {
	return database.Config{
		Path:            c.Database.Path,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		BusyTimeout:     c.Database.BusyTimeout,
	}
}

// LoggerOptions converts the logger section for utils.NewLogger
func (c *Config) LoggerOptions() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:      c.Logger.Level,
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
	}
}

// ServerOptions merges the server and api sections into the HTTP server config
func (c *Config) ServerOptions() httpapi.ServerConfig {
	return httpapi.ServerConfig{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
		IdentityHeader:  c.API.IdentityHeader,
		DefaultPageSize: c.API.DefaultPageSize,
		MaxPageSize:     c.API.MaxPageSize,
	}
}
