package simulate

import (
	"fmt"
	"math/rand/v2"
	"sync"

	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/domain/model"
)

var (
	firstNames = []string{"Aarav", "Vivaan", "Aditya", "Ananya", "Diya", "Ishaan", "Kavya", "Meera", "Rohan", "Saanvi"}
	lastNames  = []string{"Sharma", "Verma", "Iyer", "Reddy", "Nair", "Patel", "Gupta", "Singh", "Das", "Menon"}
	cities     = []struct{ city, state, pincode string }{
		{"Mumbai", "Maharashtra", "400001"},
		{"Bengaluru", "Karnataka", "560001"},
		{"Chennai", "Tamil Nadu", "600001"},
		{"Jaipur", "Rajasthan", "302001"},
		{"Kochi", "Kerala", "682001"},
		{"Leh", "Ladakh", "194101"},
	}
)

// generator builds valid order payloads from the live plan list.
type generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	plans []model.Plan
}

func newGenerator(seed uint64, plans []model.Plan) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), plans: plans}
}

func (g *generator) pick(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}

// Order returns the i-th payload. Emails embed i so lookups stay unambiguous.
func (g *generator) Order(i int) service.OrderInput {
	p := g.plans[g.pick(len(g.plans))]
	first := firstNames[g.pick(len(firstNames))]
	last := lastNames[g.pick(len(lastNames))]
	loc := cities[g.pick(len(cities))]

	in := service.OrderInput{
		CustomerFirstName: first,
		CustomerLastName:  last,
		CustomerEmail:     fmt.Sprintf("sim.%d.%d@example.in", i, g.pick(1_000_000)),
		CustomerPhone:     fmt.Sprintf("9%09d", g.pick(1_000_000_000)),
		CustomerAddress:   fmt.Sprintf("%d MG Road", 1+g.pick(500)),
		CustomerCity:      loc.city,
		CustomerPincode:   loc.pincode,
		ServiceType:       p.ServiceType,
		PlanID:            p.PlanID,
		PlanName:          p.Name,
		PlanSpeed:         p.Speed,
		PlanPrice:         p.DiscountedPrice,
		DevicePrice:       p.DeviceCost,
		TotalPaid:         p.DiscountedPrice + p.DeviceCost,
	}
	if !model.IsValidServiceType(in.ServiceType) {
		in.ServiceType = model.ServiceResidential
	}
	if in.ServiceType == model.ServiceResidential {
		in.CustomerState = loc.state
	}
	return in
}
