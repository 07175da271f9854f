// Package render turns an AnalysisResult into the expandable odds breakdown.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"improbable-love/internal/models"
	"improbable-love/internal/odds"
)

//go:embed templates/*.html
var templatesFS embed.FS

var breakdownTmpl = template.Must(template.New("breakdown.html").Funcs(template.FuncMap{
	"percent": func(f float64) string { return strconv.FormatFloat(f*100, 'f', 2, 64) },
}).ParseFS(templatesFS, "templates/breakdown.html"))

// NoneExpanded marks a view with every event collapsed.
const NoneExpanded = -1

// ConditionView is one condition with its display odds and bar fill.
type ConditionView struct {
	Description string  `json:"description"`
	OneInX      float64 `json:"oneInX"`
	Odds        string  `json:"odds"`
	Fraction    float64 `json:"fraction"`
}

// EventView is one event with the product of its own conditions.
type EventView struct {
	Index          int             `json:"index"`
	Circumstance   string          `json:"circumstance"`
	CombinedOneInX float64         `json:"combinedOneInX"`
	Odds           string          `json:"odds"`
	Expanded       bool            `json:"expanded"`
	Conditions     []ConditionView `json:"conditions"`
}

// View holds the rendered breakdown and which event is expanded.
type View struct {
	FinalOneInX float64     `json:"finalOneInX"`
	FinalOdds   string      `json:"finalOdds"`
	Summary     string      `json:"summary"`
	Events      []EventView `json:"events"`

	expanded int
}

// Build computes per-event and per-condition display values. All events start collapsed.
func Build(result *models.AnalysisResult) *View {
	v := &View{expanded: NoneExpanded, Events: []EventView{}}
	if result == nil {
		v.FinalOdds = odds.FormatOdds(1)
		v.FinalOneInX = 1
		return v
	}

	v.FinalOneInX = result.FinalOneInX
	v.FinalOdds = odds.FormatOdds(result.FinalOneInX)
	v.Summary = result.Summary

	for i, ev := range result.Events {
		combined := odds.Combine(ev.Conditions)
		ew := EventView{
			Index:          i,
			Circumstance:   ev.Circumstance,
			CombinedOneInX: combined,
			Odds:           odds.FormatOdds(combined),
			Conditions:     make([]ConditionView, 0, len(ev.Conditions)),
		}
		for _, c := range ev.Conditions {
			ew.Conditions = append(ew.Conditions, ConditionView{
				Description: c.Description,
				OneInX:      c.OneInX,
				Odds:        odds.FormatOdds(c.OneInX),
				Fraction:    odds.ProgressFraction(c.OneInX),
			})
		}
		v.Events = append(v.Events, ew)
	}
	return v
}

// Toggle expands event i and collapses any other; toggling the expanded event closes it.
// Out-of-range indexes collapse everything.
func (v *View) Toggle(i int) {
	if i == v.expanded || i < 0 || i >= len(v.Events) {
		v.setExpanded(NoneExpanded)
		return
	}
	v.setExpanded(i)
}

// Expanded returns the expanded event index or NoneExpanded.
func (v *View) Expanded() int {
	return v.expanded
}

func (v *View) setExpanded(i int) {
	v.expanded = i
	for j := range v.Events {
		v.Events[j].Expanded = j == i
	}
}

// WriteHTML renders the breakdown as an HTML fragment.
func (v *View) WriteHTML(w io.Writer) error {
	return breakdownTmpl.Execute(w, v)
}

// WriteText renders the breakdown for a terminal. Conditions are listed for every event.
func (v *View) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "The improbability of your love: %s\n", v.FinalOdds)
	if v.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", v.Summary)
	}
	for _, ev := range v.Events {
		fmt.Fprintf(&b, "\n%d. %s (%s)\n", ev.Index+1, ev.Circumstance, ev.Odds)
		for _, c := range ev.Conditions {
			fmt.Fprintf(&b, "   %-12s %s %s\n", c.Odds, bar(c.Fraction, 20), c.Description)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// bar draws a fixed-width fill proportional to f; any non-zero chance shows at least one cell.
func bar(f float64, width int) string {
	filled := int(f * float64(width))
	if f > 0 && filled == 0 {
		filled = 1
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
