package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
)

// apiSession tags events raised by the JSON endpoints.
const apiSession = "api"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// upstreamStatus maps a failed upstream call to the status sent to API clients.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, ErrBreakerOpen), errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// POST /recommend_crop
func (g *Gateway) HandleRecommendCrop(w http.ResponseWriter, r *http.Request) {
	body, resp, ok := g.passThrough(w, r, g.crop)
	if !ok {
		return
	}
	var out messages.CropResponse
	if json.Unmarshal(resp, &out) != nil || out.Error != "" || len(out.Recommendations) == 0 {
		return
	}
	var in messages.CropRequest
	var n entities.Nutrients
	if json.Unmarshal(body, &in) == nil {
		n, _ = entities.ParseNutrients(in.N, in.P, in.K)
	}
	g.events.CropRecommended(apiSession, out, n)
}

// POST /recommend_fertilizer
func (g *Gateway) HandleRecommendFertilizer(w http.ResponseWriter, r *http.Request) {
	body, resp, ok := g.passThrough(w, r, g.fertilizer)
	if !ok {
		return
	}
	var out messages.FertilizerResponse
	if json.Unmarshal(resp, &out) != nil || out.Error != "" || out.Fertilizer == "" {
		return
	}
	var in messages.FertilizerRequest
	_ = json.Unmarshal(body, &in)
	g.events.FertilizerRecommended(apiSession, in, out)
}

// passThrough forwards the JSON body to up and relays the answer with its
// status. ok reports a 2xx answer whose body can be inspected for events.
func (g *Gateway) passThrough(w http.ResponseWriter, r *http.Request, up *Upstream) (body, resp json.RawMessage, ok bool) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
		return nil, nil, false
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpstreamBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return nil, nil, false
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, nil, false
	}

	status, err := up.PostJSON(r.Context(), json.RawMessage(body), &resp)
	if err != nil {
		g.logger.Warn("api pass-through failed", "upstream", up.Name(), "error", err)
		writeError(w, upstreamStatus(err), err.Error())
		return nil, nil, false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(resp)
	return body, resp, status >= 200 && status < 300
}
