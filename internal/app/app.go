package app

import (
	"log/slog"
	"net/http"

	"github.com/fieldserve/pingate/internal/config"
	"github.com/fieldserve/pingate/internal/service"
)

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Server  *http.Server
	Janitor *service.SessionJanitor
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, janitor *service.SessionJanitor) *App {
	return &App{Config: cfg, Logger: logger, Server: server, Janitor: janitor}
}
