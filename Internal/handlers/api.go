// Package handlers exposes the scanner catalog and on-demand screening
// over HTTP for desk tooling.
package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/fazecat/gapscreener/Internal/datafeed"
	"github.com/fazecat/gapscreener/Internal/scanners"
	"github.com/fazecat/gapscreener/Internal/screener"
	"github.com/fazecat/gapscreener/Internal/utils/config"
)

type API struct {
	Config   *config.Config
	Provider datafeed.Provider
	Catalog  map[string]scanners.ScannerDefinition
}

func NewAPI(cfg *config.Config, provider datafeed.Provider, catalog map[string]scanners.ScannerDefinition) *API {
	return &API{Config: cfg, Provider: provider, Catalog: catalog}
}

func (api *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/scanners", api.HandleListScanners)
	r.Get("/api/scanners/{name}", api.HandleGetScanner)
	r.Post("/api/screen", api.HandleScreen)

	return r
}

type scannerPayload struct {
	Name      string            `json:"name"`
	Group     string            `json:"group"`
	Notes     string            `json:"notes,omitempty"`
	Baselines []baselinePayload `json:"baselines"`
}

type baselinePayload struct {
	Key         string         `json:"key"`
	Description string         `json:"description"`
	Parameters  scanners.Params `json:"parameters"`
}

func toScannerPayload(def scanners.ScannerDefinition) scannerPayload {
	baselines := make([]baselinePayload, len(def.Baselines))
	for i, b := range def.Baselines {
		baselines[i] = baselinePayload{Key: b.Key, Description: b.Description, Parameters: b.Parameters}
	}
	return scannerPayload{Name: def.Name, Group: def.Group, Notes: def.Notes, Baselines: baselines}
}

// HandleListScanners returns the full catalog grouped by category.
func (api *API) HandleListScanners(w http.ResponseWriter, r *http.Request) {
	groups := make(map[string][]scannerPayload)
	for _, def := range api.Catalog {
		groups[def.Group] = append(groups[def.Group], toScannerPayload(def))
	}
	for _, defs := range groups {
		sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	}
	WriteJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (api *API) HandleGetScanner(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	def, ok := api.Catalog[name]
	if !ok {
		WriteError(w, http.StatusNotFound, "unknown scanner "+name)
		return
	}
	WriteJSON(w, http.StatusOK, toScannerPayload(def))
}

type screenRequest struct {
	Symbols []string `json:"symbols"`
	AsOf    string   `json:"as_of,omitempty"`
}

type screenResultPayload struct {
	Symbol        string          `json:"symbol"`
	Actionable    bool            `json:"actionable"`
	GapPercent    *float64        `json:"gap_percent,omitempty"`
	RelativeVol   *float64        `json:"relative_volume,omitempty"`
	PassedFilters map[string]bool `json:"passed_filters"`
	Trend         string          `json:"trend,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// HandleScreen runs the engine against the posted symbol list using the
// service's configured criteria and provider.
func (api *API) HandleScreen(w http.ResponseWriter, r *http.Request) {
	var req screenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Symbols) == 0 {
		WriteError(w, http.StatusBadRequest, "symbols must not be empty")
		return
	}

	asOf := time.Time{}
	if req.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, req.AsOf)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid as_of, expected RFC3339")
			return
		}
		asOf = parsed
	}

	runCfg := *api.Config
	runCfg.Universe = config.Universe{Symbols: req.Symbols}

	engine := screener.NewEngine(&runCfg, api.Provider)
	results, err := engine.Run(r.Context(), asOf)
	if err != nil {
		log.Error().Err(err).Msg("screen request failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := make([]screenResultPayload, len(results))
	actionable := 0
	for i, result := range results {
		entry := screenResultPayload{
			Symbol:        result.Symbol,
			Actionable:    result.IsActionable(),
			PassedFilters: result.PassedFilters,
			Trend:         string(result.Trend),
		}
		if result.Snapshot != nil {
			gap := result.Snapshot.GapPercent()
			rel := result.Snapshot.RelativeVolume()
			entry.GapPercent = &gap
			entry.RelativeVol = &rel
		}
		if result.Err != nil {
			entry.Error = result.Err.Error()
		}
		if entry.Actionable {
			actionable++
		}
		payload[i] = entry
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"results":    payload,
		"actionable": actionable,
	})
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encoding response")
	}
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
