package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/meltforce/gainslog/internal/models"
)

// ClearOutcome describes how far a data wipe got.
type ClearOutcome int

const (
	// ClearedDirect: no background controller; the store was cleared in place.
	ClearedDirect ClearOutcome = iota
	// ClearedAll: the controller dropped the database and the asset cache.
	ClearedAll
	// ClearedPartial: the store was cleared but cached assets may remain.
	ClearedPartial
	// ClearFailed: the store could not be cleared.
	ClearFailed
)

func (o ClearOutcome) String() string {
	switch o {
	case ClearedDirect:
		return "cleared_direct"
	case ClearedAll:
		return "cleared_all"
	case ClearedPartial:
		return "cleared_partial"
	case ClearFailed:
		return "clear_failed"
	}
	return fmt.Sprintf("ClearOutcome(%d)", int(o))
}

// Message is the user-facing text for the outcome.
func (o ClearOutcome) Message() string {
	switch o {
	case ClearedDirect:
		return "All data cleared via direct access."
	case ClearedAll:
		return "All data successfully cleared."
	case ClearedPartial:
		return "Data partially cleared, but cached assets may remain."
	default:
		return "Data could not be reliably cleared. Please remove the data directory manually."
	}
}

// ClearAllData deletes every workout, record, routine and setting.
//
// Settings and in-memory state are reset first. With an active background
// controller the wipe is delegated to it; if it fails or does not answer in
// time the store is reopened and cleared directly, once.
//
// A wipe runs to completion once started, so cancellation of ctx is ignored.
func (a *App) ClearAllData(ctx context.Context) (ClearOutcome, error) {
	ctx = context.WithoutCancel(ctx)
	if err := a.settings.Wipe(); err != nil {
		a.log.Warn("clearing settings", "error", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = map[string]models.PersonalRecord{}
	a.current = a.emptySession()

	if a.ctrl == nil || !a.ctrl.Active() {
		if err := a.store.ClearAll(ctx); err != nil {
			a.log.Error("clearing store", "error", err)
			return ClearFailed, err
		}
		a.log.Info("all data cleared", "via", "store")
		return ClearedDirect, nil
	}

	err := a.ctrl.RequestClear(ctx)
	if err == nil {
		a.log.Info("all data cleared", "via", "controller")
		if err := a.reload(ctx); err != nil {
			return ClearedAll, fmt.Errorf("reloading store: %w", err)
		}
		return ClearedAll, nil
	}

	// The controller may have dropped the database even though it reported
	// failure, so never keep writing through the old connection.
	a.log.Warn("controller wipe failed, clearing store directly", "error", err)
	if rerr := a.reopen(ctx); rerr != nil {
		a.log.Error("reopening store", "error", rerr)
		return ClearFailed, errors.Join(err, rerr)
	}
	if ferr := a.store.ClearAll(ctx); ferr != nil {
		a.log.Error("clearing store", "error", ferr)
		return ClearFailed, errors.Join(err, ferr)
	}
	if lerr := a.loadRecords(ctx); lerr != nil {
		return ClearedPartial, fmt.Errorf("reloading records: %w", lerr)
	}
	return ClearedPartial, nil
}

// reload reopens the store after the database was dropped underneath it.
// Called with a.mu held.
func (a *App) reload(ctx context.Context) error {
	if err := a.reopen(ctx); err != nil {
		return err
	}
	return a.loadRecords(ctx)
}

func (a *App) reopen(ctx context.Context) error {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store before reopen", "error", err)
	}
	return a.store.Open(ctx)
}

func (a *App) loadRecords(ctx context.Context) error {
	recs, err := a.store.GetAllRecords(ctx)
	if err != nil {
		return err
	}
	a.records = make(map[string]models.PersonalRecord, len(recs))
	for _, r := range recs {
		a.records[r.Name] = r
	}
	return nil
}
