package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model"
	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
)

var (
	// ErrEmptyRecommendations marks a crop answer with neither a result nor an error.
	ErrEmptyRecommendations = errors.New("no recommendations returned")
	// ErrEmptyFertilizer marks a fertilizer answer with neither a result nor an error.
	ErrEmptyFertilizer = errors.New("no fertilizer returned")
)

const (
	historyTimeout = 800 * time.Millisecond
	readyTimeout   = 2 * time.Second

	errorPrefix = "Error getting recommendation: "
)

// flow results, used as metric labels
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

func errorMessage(err error) string {
	return errorPrefix + err.Error()
}

// wantsFragment is true for htmx requests and for ?fragment=1.
func wantsFragment(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" || r.URL.Query().Get("fragment") == "1"
}

func (g *Gateway) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, error) {
	id, err := g.sessions.ID(w, r)
	if err != nil {
		return nil, err
	}
	return g.workspaces.Get(id)
}

// GET /
func (g *Gateway) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ws, err := g.workspace(w, r)
	if err != nil {
		g.internalError(w, r, err)
		return
	}
	view := newPageView(ws.Snapshot(), g.cfg.Catalog, g.recentHistory(r.Context()))
	if err := g.render.Render(w, http.StatusOK, "index", view); err != nil {
		g.internalError(w, r, err)
	}
}

// recentHistory is decoration: any failure yields an empty list.
func (g *Gateway) recentHistory(ctx context.Context) []HistoryEntry {
	if !g.history.Configured() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()
	var out []HistoryEntry
	if err := g.history.GetJSON(ctx, &out); err != nil {
		g.logger.Debug("history unavailable", "error", err)
		return nil
	}
	return out
}

// POST /ui/crop
func (g *Gateway) HandleCropSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ws, err := g.workspace(w, r)
	if err != nil {
		g.internalError(w, r, err)
		return
	}

	ws.Lock()
	req := CropRequestFromForm(r.PostForm)
	ws.SetCropForm(req)
	result, publish := g.recommendCrop(r.Context(), ws, req)
	ws.Unlock()
	// the broker ack is not awaited under the session lock
	publish()

	g.metrics.flow(model.KindCrop, result)
	g.respond(w, r, ws, "crop_fragment")
}

func noEvent() {}

// recommendCrop updates ws and returns the flow result plus the event to
// publish once the session is released.
func (g *Gateway) recommendCrop(ctx context.Context, ws *Workspace, req messages.CropRequest) (string, func()) {
	var resp messages.CropResponse
	if _, err := g.crop.PostJSON(ctx, req, &resp); err != nil {
		g.logger.Warn("crop recommendation failed", "session", ws.ID, "error", err)
		ws.SetCropError(errorMessage(err))
		return resultError, noEvent
	}
	if resp.Error != "" {
		ws.SetCropError(resp.Error)
		return resultRejected, noEvent
	}
	if len(resp.Recommendations) == 0 {
		ws.SetCropError(errorMessage(ErrEmptyRecommendations))
		return resultError, noEvent
	}

	ws.ApplyCrop(newCropView(resp))

	n, err := entities.ParseNutrients(req.N, req.P, req.K)
	if err != nil {
		// the advisor accepted them, but they are not plain numbers
		g.logger.Debug("chart skipped", "session", ws.ID, "error", err)
	} else {
		ws.ReplaceChart(NewNutrientChart(n, g.cfg.Catalog.Ideal))
	}
	g.logger.Info("crop recommended", "session", ws.ID, "top", resp.Top(), "alternatives", len(resp.Others()))
	id := ws.ID
	return resultOK, func() { g.events.CropRecommended(id, resp, n) }
}

// POST /ui/fertilizer
func (g *Gateway) HandleFertilizerSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ws, err := g.workspace(w, r)
	if err != nil {
		g.internalError(w, r, err)
		return
	}

	ws.Lock()
	req := FertilizerRequestFromForm(r.PostForm)
	ws.SetFertilizerForm(req)
	result, publish := g.recommendFertilizer(r.Context(), ws, req)
	ws.Unlock()
	publish()

	g.metrics.flow(model.KindFertilizer, result)
	g.respond(w, r, ws, "fertilizer_fragment")
}

func (g *Gateway) recommendFertilizer(ctx context.Context, ws *Workspace, req messages.FertilizerRequest) (string, func()) {
	var resp messages.FertilizerResponse
	if _, err := g.fertilizer.PostJSON(ctx, req, &resp); err != nil {
		g.logger.Warn("fertilizer recommendation failed", "session", ws.ID, "error", err)
		ws.SetFertilizerError(errorMessage(err))
		return resultError, noEvent
	}
	if resp.Error != "" {
		ws.SetFertilizerError(resp.Error)
		return resultRejected, noEvent
	}
	if resp.Fertilizer == "" {
		ws.SetFertilizerError(errorMessage(ErrEmptyFertilizer))
		return resultError, noEvent
	}

	ws.ApplyFertilizer(newFertilizerView(resp))
	ws.ReplaceChart(NewNutrientChart(model.NutrientsOf(resp.SoilHealth), g.cfg.Catalog.Ideal))
	g.logger.Info("fertilizer recommended", "session", ws.ID, "fertilizer", resp.Fertilizer, "deficiencies", len(resp.Deficiencies))
	id := ws.ID
	return resultOK, func() { g.events.FertilizerRecommended(id, req, resp) }
}

// respond answers a form post: the changed fragments for htmx-style clients,
// otherwise a redirect back to the page (post/redirect/get).
func (g *Gateway) respond(w http.ResponseWriter, r *http.Request, ws *Workspace, fragment string) {
	if !wantsFragment(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	view := newPageView(ws.Snapshot(), g.cfg.Catalog, nil)
	if err := g.render.Render(w, http.StatusOK, fragment, view); err != nil {
		g.internalError(w, r, err)
	}
}

// GET /chart.json
func (g *Gateway) HandleChartJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := g.sessions.Lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "no chart")
		return
	}
	ws, ok := g.workspaces.Peek(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no chart")
		return
	}
	chart, ok := ws.Chart()
	if !ok {
		writeError(w, http.StatusNotFound, "no chart")
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// GET /healthz
func (g *Gateway) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// GET /readyz runs every readiness probe; the advisor itself is only checked
// for being configured, its health shows through the breaker.
func (g *Gateway) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if !g.crop.Configured() || !g.fertilizer.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": ErrNotConfigured.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	for name, probe := range g.cfg.Readiness {
		if err := probe(ctx); err != nil {
			g.logger.Warn("readiness probe failed", "probe", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "probe": name, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (g *Gateway) internalError(w http.ResponseWriter, r *http.Request, err error) {
	g.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
