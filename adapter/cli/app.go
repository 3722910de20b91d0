package cli

import (
	"github.com/scriptplanner/scriptplan/internal/eventbus"
	"github.com/scriptplanner/scriptplan/internal/journal"
	"github.com/scriptplanner/scriptplan/internal/resultcache"
	"github.com/scriptplanner/scriptplan/pkg/config"
)

// App holds the CLI application's wired dependencies: the run journal
// repository, the result cache, and the event publisher every
// subcommand needs to reach the scheduling kernel's collaborators.
type App struct {
	Config  *config.Config
	Journal journal.Repository
	Cache   resultcache.Cache
	Events  eventbus.Publisher
}

// NewApp wires the dependencies a CLI invocation needs. A nil Cache or
// Events is fine — both callers check for nil before use.
func NewApp(cfg *config.Config, repo journal.Repository, cache resultcache.Cache, pub eventbus.Publisher) *App {
	if repo == nil {
		repo = journal.NewMemoryRepository()
	}
	return &App{Config: cfg, Journal: repo, Cache: cache, Events: pub}
}

var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) { app = a }

// GetApp returns the global CLI application instance.
func GetApp() *App { return app }
