package analytics

import (
	"fmt"
	"strconv"
	"time"
)

// Visitor statuses.
const (
	VisitorNew    = "new"
	VisitorActive = "active"
	VisitorIdle   = "idle"
)

// Visitor is one fabricated live session.
type Visitor struct {
	ID          string `json:"id"`
	CurrentPage string `json:"currentPage"`
	EntryPage   string `json:"entryPage"`
	TimeOnPage  int    `json:"timeOnPage"`
	PagesViewed int    `json:"pagesViewed"`
	Device      string `json:"device"`
	State       string `json:"state"`
	Status      string `json:"status"`
}

// LiveUsers is the live monitor payload.
type LiveUsers struct {
	Count       int            `json:"count"`
	Users       []Visitor      `json:"users"`
	ByDevice    map[string]int `json:"byDevice"`
	ByPage      map[string]int `json:"byPage"`
	ByState     map[string]int `json:"byState"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Live fabricates between 120 and 169 concurrent visitors.
func (g *Generator) Live() LiveUsers {
	n := int(g.between(120, 169))
	out := LiveUsers{
		Count:       n,
		Users:       make([]Visitor, 0, n),
		ByDevice:    map[string]int{},
		ByPage:      map[string]int{},
		ByState:     map[string]int{},
		GeneratedAt: g.now().UTC(),
	}
	for _, d := range Devices {
		out.ByDevice[d] = 0
	}
	for _, p := range Pages {
		out.ByPage[p] = 0
	}
	for i := 0; i < n; i++ {
		v := g.visitor()
		out.Users = append(out.Users, v)
		out.ByDevice[v.Device]++
		out.ByPage[v.CurrentPage]++
		out.ByState[v.State]++
	}
	return out
}

func (g *Generator) visitor() Visitor {
	entry := Pages[g.rng.IntN(len(Pages))]
	current := entry
	viewed := 1 + g.rng.IntN(6)
	if viewed > 1 {
		current = Pages[g.rng.IntN(len(Pages))]
	}
	status := VisitorActive
	switch r := g.rng.Float64(); {
	case r < 0.15:
		status = VisitorNew
	case r < 0.35:
		status = VisitorIdle
	}
	return Visitor{
		ID:          fmt.Sprintf("...%s", strconv.FormatUint(g.rng.Uint64()%2176782336, 36)),
		CurrentPage: current,
		EntryPage:   entry,
		TimeOnPage:  g.rng.IntN(300),
		PagesViewed: viewed,
		Device:      Devices[g.rng.IntN(len(Devices))],
		State:       States[g.rng.IntN(len(States))],
		Status:      status,
	}
}
