package mcp

import (
	"context"

	"github.com/meltforce/gainslog/internal/app"
	"github.com/meltforce/gainslog/internal/models"
)

// DataSource abstracts the data layer for MCP tools. Both Local (in-process)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	Sessions(ctx context.Context) ([]models.WorkoutSession, error)
	PersonalRecords(ctx context.Context) ([]models.PersonalRecord, error)
	ProfileStats(ctx context.Context) (app.Stats, error)
}

// Local serves MCP requests from the running application.
type Local struct {
	App *app.App
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = Local{}

func (l Local) Sessions(ctx context.Context) ([]models.WorkoutSession, error) {
	return l.App.History(ctx)
}

func (l Local) PersonalRecords(context.Context) ([]models.PersonalRecord, error) {
	return l.App.Records(), nil
}

func (l Local) ProfileStats(ctx context.Context) (app.Stats, error) {
	return l.App.Stats(ctx)
}
