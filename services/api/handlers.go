package api

import (
	"fmt"
	"net/http"
	"time"

	"invdash/services/warehouse"
)

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	window, err := parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	summary, err := a.store.SummaryFor(ctx, window)
	if err != nil {
		a.log.Error().Err(err).Msg("summary query")
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (a *API) handleDeployed(w http.ResponseWriter, r *http.Request) {
	window, err := parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	rows, err := a.store.DeployedByDate(ctx, window)
	if err != nil {
		a.log.Error().Err(err).Msg("deployed query")
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (a *API) handleChanges(w http.ResponseWriter, r *http.Request) {
	window, err := parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	rows, err := a.store.ChangesByDate(ctx, window)
	if err != nil {
		a.log.Error().Err(err).Msg("changes query")
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (a *API) handleChangesByType(w http.ResponseWriter, r *http.Request) {
	window, err := parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	rows, err := a.store.ChangesByTypeByDate(ctx, window)
	if err != nil {
		a.log.Error().Err(err).Msg("changes by type query")
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (a *API) handleConfidence(w http.ResponseWriter, r *http.Request) {
	window, err := parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	rows, err := a.store.ConfidenceByDate(ctx, window)
	if err != nil {
		a.log.Error().Err(err).Msg("confidence query")
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// parseRange reads optional from/to query parameters as YYYY-MM-DD dates.
func parseRange(r *http.Request) (warehouse.DateRange, error) {
	var window warehouse.DateRange

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return warehouse.DateRange{}, fmt.Errorf("invalid from date %q", v)
		}
		window.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return warehouse.DateRange{}, fmt.Errorf("invalid to date %q", v)
		}
		window.To = t
	}
	if !window.From.IsZero() && !window.To.IsZero() && window.To.Before(window.From) {
		return warehouse.DateRange{}, fmt.Errorf("to date precedes from date")
	}
	return window, nil
}
