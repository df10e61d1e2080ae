package api

import (
	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/analytics"
	"github.com/taylorsterlingwrites/threshold-compass/internal/storage"
)

type App interface {
	Logger() internal.Logger
	Engine() *analytics.Engine
	DoseRepo() storage.DoseRepository
	CheckInRepo() storage.CheckInRepository
	BatchRepo() storage.BatchRepository
}

// Deps is the App used by the server and the tests.
type Deps struct {
	Log      internal.Logger
	Analyzer *analytics.Engine
	Repos    *storage.Repositories
}

func (d *Deps) Logger() internal.Logger                { return d.Log }
func (d *Deps) Engine() *analytics.Engine              { return d.Analyzer }
func (d *Deps) DoseRepo() storage.DoseRepository       { return d.Repos.Doses }
func (d *Deps) CheckInRepo() storage.CheckInRepository { return d.Repos.CheckIns }
func (d *Deps) BatchRepo() storage.BatchRepository     { return d.Repos.Batches }

var _ App = (*Deps)(nil)
