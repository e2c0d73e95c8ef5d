package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
)

// RecommendationView is one rendered crop entry.
type RecommendationView struct {
	Crop        string
	Probability float64
}

type CropView struct {
	Top            string
	TopProbability float64
	Others         []RecommendationView
}

type FertilizerView struct {
	Fertilizer   string
	Deficiencies []string
}

// Panel is the content of one result area: a result, an error, or nothing yet.
type Panel struct {
	Crop       *CropView
	Fertilizer *FertilizerView
	Error      string
}

func (p Panel) Empty() bool { return p.Crop == nil && p.Fertilizer == nil && p.Error == "" }

func newCropView(r messages.CropResponse) *CropView {
	v := &CropView{Top: r.Top(), TopProbability: r.TopProbability()}
	for _, o := range r.Others() {
		v.Others = append(v.Others, RecommendationView{Crop: o.Crop, Probability: float64(o.Probability)})
	}
	return v
}

func newFertilizerView(r messages.FertilizerResponse) *FertilizerView {
	return &FertilizerView{Fertilizer: r.Fertilizer, Deficiencies: append([]string(nil), r.Deficiencies...)}
}

// Workspace is the page state of one browser session. It owns the single
// current chart: every update replaces it.
type Workspace struct {
	ID string

	// flow serialises submissions of this session so a double submit cannot
	// interleave two chart rebuilds; mu guards the fields below.
	flow sync.Mutex
	mu   sync.Mutex

	cropForm       messages.CropRequest
	fertForm       messages.FertilizerRequest
	cropPanel      Panel
	fertPanel      Panel
	showFertilizer bool
	chart          *NutrientChart
	chartVersion   int
	touched        time.Time
}

// WorkspaceView is an immutable copy handed to templates.
type WorkspaceView struct {
	ID             string
	CropForm       messages.CropRequest
	FertForm       messages.FertilizerRequest
	CropPanel      Panel
	FertPanel      Panel
	ShowFertilizer bool
	Chart          *NutrientChart
	ChartVersion   int
}

func newWorkspace(id string, now time.Time) *Workspace {
	return &Workspace{
		ID:       id,
		cropForm: DefaultCropForm,
		fertForm: DefaultFertilizerForm,
		touched:  now,
	}
}

// Lock serialises a whole submit flow for this session.
func (w *Workspace) Lock()   { w.flow.Lock() }
func (w *Workspace) Unlock() { w.flow.Unlock() }

func (w *Workspace) Snapshot() WorkspaceView {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := WorkspaceView{
		ID:             w.ID,
		CropForm:       w.cropForm,
		FertForm:       w.fertForm,
		CropPanel:      w.cropPanel,
		FertPanel:      w.fertPanel,
		ShowFertilizer: w.showFertilizer,
		ChartVersion:   w.chartVersion,
	}
	if w.chart != nil {
		c := *w.chart
		v.Chart = &c
	}
	return v
}

func (w *Workspace) SetCropForm(r messages.CropRequest) {
	w.mu.Lock()
	w.cropForm = r
	w.mu.Unlock()
}

func (w *Workspace) SetFertilizerForm(r messages.FertilizerRequest) {
	w.mu.Lock()
	w.fertForm = r
	w.mu.Unlock()
}

func (w *Workspace) SetCropError(msg string) {
	w.mu.Lock()
	w.cropPanel = Panel{Error: msg}
	w.mu.Unlock()
}

// SetFertilizerError also reveals the fertilizer section so the alert is seen.
func (w *Workspace) SetFertilizerError(msg string) {
	w.mu.Lock()
	w.fertPanel = Panel{Error: msg}
	w.showFertilizer = true
	w.mu.Unlock()
}

// ApplyCrop shows the crop result, reveals the fertilizer section and
// pre-fills its crop field with the top recommendation.
func (w *Workspace) ApplyCrop(v *CropView) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cropPanel = Panel{Crop: v}
	w.showFertilizer = true
	w.fertForm.CropType = v.Top
}

func (w *Workspace) ApplyFertilizer(v *FertilizerView) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fertPanel = Panel{Fertilizer: v}
	w.showFertilizer = true
}

// ReplaceChart installs c and returns the chart it replaced, if any.
func (w *Workspace) ReplaceChart(c NutrientChart) *NutrientChart {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.chart
	w.chart = &c
	w.chartVersion++
	return prev
}

func (w *Workspace) Chart() (NutrientChart, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.chart == nil {
		return NutrientChart{}, false
	}
	return *w.chart, true
}

// WorkspaceStore keeps workspaces in memory, expiring idle ones after ttl and
// evicting the least recently used beyond max.
type WorkspaceStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	max   int
	items map[string]*Workspace
	now   func() time.Time
}

func NewWorkspaceStore(ttl time.Duration, max int) *WorkspaceStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if max <= 0 {
		max = 10000
	}
	return &WorkspaceStore{ttl: ttl, max: max, items: make(map[string]*Workspace), now: time.Now}
}

// Get returns the workspace for id, creating a fresh one when missing or expired.
func (s *WorkspaceStore) Get(id string) (*Workspace, error) {
	if id == "" {
		return nil, fmt.Errorf("empty session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if ws, ok := s.items[id]; ok && now.Sub(ws.touched) < s.ttl {
		ws.touched = now
		return ws, nil
	}
	ws := newWorkspace(id, now)
	s.items[id] = ws
	if len(s.items) > s.max {
		s.sweepLocked(now, id)
	}
	return ws, nil
}

// Peek returns an existing, live workspace without creating one.
func (s *WorkspaceStore) Peek(id string) (*Workspace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.items[id]
	if !ok || s.now().Sub(ws.touched) >= s.ttl {
		return nil, false
	}
	return ws, true
}

func (s *WorkspaceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *WorkspaceStore) sweepLocked(now time.Time, keep string) {
	for id, ws := range s.items {
		if now.Sub(ws.touched) >= s.ttl {
			delete(s.items, id)
		}
	}
	for len(s.items) > s.max {
		var lru *Workspace
		for id, ws := range s.items {
			if id == keep {
				continue
			}
			if lru == nil || ws.touched.Before(lru.touched) {
				lru = ws
			}
		}
		delete(s.items, lru.ID)
	}
}
