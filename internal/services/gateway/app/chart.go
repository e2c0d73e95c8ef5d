package app

import (
	"fmt"
	"math"
	"strconv"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
)

const (
	chartTitle      = "Soil Nutrient Levels vs Ideal"
	chartYAxisTitle = "Level (kg/ha)"
	currentLabel    = "Current Levels"
	idealLabel      = "Ideal Levels"
)

// Colors per nutrient (N, P, K).
var nutrientRGB = [3]string{"54, 162, 235", "255, 99, 132", "255, 206, 86"}

func rgba(rgb string, alpha float64) string {
	return fmt.Sprintf("rgba(%s, %s)", rgb, strconv.FormatFloat(alpha, 'f', -1, 64))
}

// Dataset mirrors a chart.js dataset so /chart.json can be fed to one directly.
type Dataset struct {
	Label           string    `json:"label"`
	Type            string    `json:"type"` // bar | line
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
	BorderColor     []string  `json:"borderColor"`
	BorderWidth     int       `json:"borderWidth"`
	Fill            bool      `json:"fill"`
}

// NutrientChart compares measured N/P/K with the ideal levels.
type NutrientChart struct {
	Title       string    `json:"title"`
	YAxisTitle  string    `json:"yAxisTitle"`
	BeginAtZero bool      `json:"beginAtZero"`
	Labels      []string  `json:"labels"`
	Datasets    []Dataset `json:"datasets"`
}

func NewNutrientChart(current, ideal entities.Nutrients) NutrientChart {
	mk := func(alpha float64) []string {
		out := make([]string, len(nutrientRGB))
		for i, c := range nutrientRGB {
			out[i] = rgba(c, alpha)
		}
		return out
	}
	return NutrientChart{
		Title:       chartTitle,
		YAxisTitle:  chartYAxisTitle,
		BeginAtZero: true,
		Labels:      entities.Labels(),
		Datasets: []Dataset{
			{
				Label:           currentLabel,
				Type:            "bar",
				Data:            current.Values(),
				BackgroundColor: mk(0.7),
				BorderColor:     mk(1),
				BorderWidth:     1,
			},
			{
				Label:           idealLabel,
				Type:            "line",
				Data:            ideal.Values(),
				BackgroundColor: mk(0.3),
				BorderColor:     mk(1),
				BorderWidth:     1,
				Fill:            false,
			},
		},
	}
}

// Tooltip is the hover text of one data point.
func (c NutrientChart) Tooltip(dataset, index int) string {
	if dataset < 0 || dataset >= len(c.Datasets) || index < 0 || index >= len(c.Datasets[dataset].Data) {
		return ""
	}
	ds := c.Datasets[dataset]
	label := ""
	if ds.Label != "" {
		label = ds.Label + ": "
	}
	label += formatNumber(ds.Data[index])
	if dataset == 1 {
		label += " (Ideal)"
	}
	return label
}

// ---------- SVG layout ----------

const (
	svgWidth   = 520
	svgHeight  = 320
	padLeft    = 60
	padRight   = 20
	padTop     = 44
	padBottom  = 48
	yTickCount = 5

	// values above this are drawn at the top of the axis
	maxAxisValue = 1e12
)

type svgBar struct {
	X, Y, W, H   float64
	Fill, Stroke string
	Tooltip      string
}

type svgPoint struct {
	X, Y    float64
	Stroke  string
	Tooltip string
}

type svgTick struct {
	Y     float64
	Label string
}

type svgLabel struct {
	X     float64
	Label string
}

// ChartLayout is the geometry the "chart" template draws.
type ChartLayout struct {
	Width, Height     int
	Left, Right       float64
	Top, Bottom       float64
	Title, YAxisTitle string
	CurrentLabel      string
	IdealLabel        string
	CurrentSwatch     string
	IdealSwatch       string
	Bars              []svgBar
	Line              []svgPoint
	LinePath          string
	Ticks             []svgTick
	Categories        []svgLabel
}

// Layout places bars (first dataset) and the line (second dataset) on a
// zero-based linear axis.
func (c NutrientChart) Layout() ChartLayout {
	l := ChartLayout{
		Width:        svgWidth,
		Height:       svgHeight,
		Left:         padLeft,
		Right:        svgWidth - padRight,
		Top:          padTop,
		Bottom:       svgHeight - padBottom,
		Title:        c.Title,
		YAxisTitle:   c.YAxisTitle,
		CurrentLabel: currentLabel,
		IdealLabel:   idealLabel,
	}
	if len(c.Datasets) > 0 && len(c.Datasets[0].BackgroundColor) > 0 {
		l.CurrentSwatch = c.Datasets[0].BackgroundColor[0]
	}
	if len(c.Datasets) > 1 && len(c.Datasets[1].BorderColor) > 0 {
		l.IdealSwatch = c.Datasets[1].BorderColor[0]
	}

	maxV := 0.0
	for _, ds := range c.Datasets {
		for _, v := range ds.Data {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				maxV = math.Max(maxV, v)
			}
		}
	}
	maxV = math.Min(maxV, maxAxisValue)
	step := niceStep(maxV / yTickCount)
	top := step * math.Ceil(maxV/step)
	if top <= 0 {
		top = step * yTickCount
	}

	plotH := l.Bottom - l.Top
	plotW := l.Right - l.Left
	y := func(v float64) float64 {
		if math.IsNaN(v) {
			v = 0
		}
		v = math.Max(0, math.Min(v, top))
		return l.Bottom - v/top*plotH
	}

	for i := 0; i <= yTickCount+1 && float64(i)*step <= top+step/2; i++ {
		v := round2(float64(i) * step)
		l.Ticks = append(l.Ticks, svgTick{Y: round2(y(v)), Label: formatNumber(v)})
	}

	n := len(c.Labels)
	if n == 0 {
		return l
	}
	cat := plotW / float64(n)
	for i, name := range c.Labels {
		l.Categories = append(l.Categories, svgLabel{X: round2(l.Left + cat*(float64(i)+0.5)), Label: name})
	}

	if len(c.Datasets) > 0 {
		ds := c.Datasets[0]
		for i := 0; i < n && i < len(ds.Data); i++ {
			barTop := y(ds.Data[i])
			l.Bars = append(l.Bars, svgBar{
				X:       round2(l.Left + cat*float64(i) + cat*0.2),
				Y:       round2(barTop),
				W:       round2(cat * 0.6),
				H:       round2(l.Bottom - barTop),
				Fill:    pick(ds.BackgroundColor, i),
				Stroke:  pick(ds.BorderColor, i),
				Tooltip: c.Tooltip(0, i),
			})
		}
	}
	if len(c.Datasets) > 1 {
		ds := c.Datasets[1]
		path := ""
		for i := 0; i < n && i < len(ds.Data); i++ {
			p := svgPoint{
				X:       round2(l.Left + cat*(float64(i)+0.5)),
				Y:       round2(y(ds.Data[i])),
				Stroke:  pick(ds.BorderColor, i),
				Tooltip: c.Tooltip(1, i),
			}
			l.Line = append(l.Line, p)
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			path += fmt.Sprintf("%s%s %s ", cmd, formatNumber(p.X), formatNumber(p.Y))
		}
		if len(path) > 0 {
			l.LinePath = path[:len(path)-1]
		}
	}
	return l
}

// niceStep rounds raw up to 1, 2 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 10
	}
	exp := math.Pow(10, math.Floor(math.Log10(raw)))
	f := raw / exp
	switch {
	case f <= 1:
		return exp
	case f <= 2:
		return 2 * exp
	case f <= 5:
		return 5 * exp
	default:
		return 10 * exp
	}
}

func pick(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
