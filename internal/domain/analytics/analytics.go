// Package analytics fabricates the admin dashboard figures. Nothing here reads
// real orders; the numbers are plausible noise drawn from a seeded source so a
// given seed always renders the same dashboard.
package analytics

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/okian/prebook/internal/domain/money"
)

// Metric is a headline figure with its change against the previous period.
type Metric struct {
	Value  string  `json:"value"`
	Change float64 `json:"change"`
	Period string  `json:"period"`
}

// TrendPoint is one month of revenue.
type TrendPoint struct {
	Name    string `json:"name"`
	Revenue int64  `json:"revenue"`
	Orders  int64  `json:"orders"`
}

// FunnelStage is one step of the checkout funnel.
type FunnelStage struct {
	Name           string  `json:"name"`
	Value          int64   `json:"value"`
	DropOff        float64 `json:"dropOff"`
	PercentOfTotal float64 `json:"percentOfTotal"`
}

// Share is a named percentage.
type Share struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// PagePerformance summarises one landing page.
type PagePerformance struct {
	Page       string `json:"page"`
	Views      string `json:"views"`
	BounceRate string `json:"bounceRate"`
	Conversion string `json:"conversion"`
}

// GeoRow is demand for one state.
type GeoRow struct {
	State   string `json:"state"`
	Orders  int64  `json:"orders"`
	Revenue string `json:"revenue"`
}

// DevicePlan splits kit sales by service type.
type DevicePlan struct {
	Name        string `json:"name"`
	Residential int64  `json:"residential"`
	Roam        int64  `json:"roam"`
}

// RevenueMetrics is the revenue card.
type RevenueMetrics struct {
	TotalRevenue     Metric        `json:"totalRevenue"`
	AverageOrder     Metric        `json:"aov"`
	RevenueByService []NamedString `json:"revenueByService"`
}

// NamedString is a label with a preformatted value.
type NamedString struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ABTest is a finished experiment.
type ABTest struct {
	Test     string `json:"test"`
	VariantA string `json:"variantA"`
	VariantB string `json:"variantB"`
	Winner   string `json:"winner"`
}

// Dashboard is the full analytics payload.
type Dashboard struct {
	Traffic          map[string]Metric `json:"traffic"`
	RevenueTrend     []TrendPoint      `json:"revenueTrend"`
	ConversionFunnel []FunnelStage     `json:"conversionFunnel"`
	TrafficSources   []Share           `json:"trafficSources"`
	PagePerformance  []PagePerformance `json:"pagePerformance"`
	GeoDistribution  []GeoRow          `json:"geoDistribution"`
	DevicePlan       []DevicePlan      `json:"devicePlan"`
	RevenueMetrics   RevenueMetrics    `json:"revenueMetrics"`
	ABTests          []ABTest          `json:"abTests"`
	GeneratedAt      time.Time         `json:"generatedAt"`
}

// States used for the geographic breakdowns.
var States = []string{
	"Maharashtra", "Karnataka", "Tamil Nadu", "Delhi", "Gujarat", "Telangana", "Uttar Pradesh",
	"West Bengal", "Rajasthan", "Kerala", "Punjab", "Haryana", "Madhya Pradesh", "Odisha", "Assam",
}

// Pages visitors move between.
var Pages = []string{"/", "/residential", "/roam", "/business", "/checkout", "/help", "/about", "/contact"}

// Devices visitors browse from.
var Devices = []string{"Desktop", "Mobile", "Tablet"}

// Generator draws dashboard data from a seeded source.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator seeds a generator. A zero seed picks one from the clock.
func NewGenerator(seed uint64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	if seed == 0 {
		seed = uint64(now().UnixNano())
	}
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: now}
}

func (g *Generator) between(lo, hi int64) int64 {
	return lo + g.rng.Int64N(hi-lo+1)
}

func (g *Generator) change() float64 {
	return math.Round((g.rng.Float64()*30-10)*10) / 10
}

// Dashboard fabricates the analytics page.
func (g *Generator) Dashboard() Dashboard {
	now := g.now().UTC()
	visitors := g.between(700_000, 900_000)
	pageViews := visitors + g.between(250_000, 450_000)

	d := Dashboard{
		Traffic: map[string]Metric{
			"pageViews":       {Value: compact(pageViews), Change: g.change(), Period: "vs last month"},
			"uniqueVisitors":  {Value: compact(visitors), Change: g.change(), Period: "vs last month"},
			"sessionDuration": {Value: fmt.Sprintf("%dm %02ds", g.between(2, 5), g.between(0, 59)), Change: g.change(), Period: "vs last month"},
			"bounceRate":      {Value: fmt.Sprintf("%.1f%%", 30+g.rng.Float64()*20), Change: g.change(), Period: "vs last month"},
		},
		GeneratedAt: now,
	}

	for i := 5; i >= 0; i-- {
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		orders := g.between(900, 2400)
		d.RevenueTrend = append(d.RevenueTrend, TrendPoint{
			Name:    month.Format("Jan"),
			Orders:  orders,
			Revenue: orders * g.between(3_000, 6_000),
		})
	}

	d.ConversionFunnel = Funnel(
		[]string{"Visitors", "Product Page Views", "Checkout Initiated", "Checkout Completed"},
		[]int64{
			visitors,
			visitors * g.between(45, 60) / 100,
			visitors * g.between(12, 16) / 100,
			visitors * g.between(9, 11) / 100,
		},
	)

	direct := int(g.between(35, 50))
	organic := int(g.between(20, 35))
	referral := int(g.between(5, 15))
	d.TrafficSources = []Share{
		{Name: "Direct", Value: direct},
		{Name: "Organic Search", Value: organic},
		{Name: "Referral", Value: referral},
		{Name: "Social", Value: 100 - direct - organic - referral},
	}

	for _, p := range []string{"/", "/residential", "/roam", "/checkout"} {
		d.PagePerformance = append(d.PagePerformance, PagePerformance{
			Page:       p,
			Views:      compact(g.between(100_000, 450_000)),
			BounceRate: fmt.Sprintf("%d%%", g.between(20, 45)),
			Conversion: fmt.Sprintf("%.1f%%", 2+g.rng.Float64()*8),
		})
	}

	for _, s := range States[:5] {
		orders := g.between(5_000, 20_000)
		d.GeoDistribution = append(d.GeoDistribution, GeoRow{
			State:   s,
			Orders:  orders,
			Revenue: "₹" + compact(orders*g.between(30_000, 45_000)),
		})
	}

	for _, kit := range []string{"Standard Kit", "High-Perf Kit", "Mini Kit"} {
		d.DevicePlan = append(d.DevicePlan, DevicePlan{Name: kit, Residential: g.between(800, 4_000), Roam: g.between(1_000, 6_000)})
	}

	var total int64
	for _, p := range d.RevenueTrend {
		total += p.Revenue
	}
	var orders int64
	for _, p := range d.RevenueTrend {
		orders += p.Orders
	}
	d.RevenueMetrics = RevenueMetrics{
		TotalRevenue: Metric{Value: "₹" + compact(total), Change: g.change(), Period: "last 6 months"},
		AverageOrder: Metric{Value: money.FormatINR(total / max(orders, 1)), Change: g.change(), Period: "last 6 months"},
		RevenueByService: []NamedString{
			{Name: "Residential", Value: "₹" + compact(total*65/100)},
			{Name: "Roam", Value: "₹" + compact(total*30/100)},
			{Name: "Business", Value: "₹" + compact(total*5/100)},
		},
	}

	d.ABTests = []ABTest{
		g.abTest("New Checkout Button"),
		g.abTest("Hero Section Headline"),
	}
	return d
}

func (g *Generator) abTest(name string) ABTest {
	a := 2 + g.rng.Float64()*15
	b := 2 + g.rng.Float64()*15
	winner := fmt.Sprintf("A (+%.1f%%)", (a-b)/b*100)
	if b > a {
		winner = fmt.Sprintf("B (+%.1f%%)", (b-a)/a*100)
	}
	return ABTest{Test: name, VariantA: fmt.Sprintf("%.1f%%", a), VariantB: fmt.Sprintf("%.1f%%", b), Winner: winner}
}

// Funnel computes drop-off against the previous stage and share of the first.
func Funnel(names []string, values []int64) []FunnelStage {
	out := make([]FunnelStage, 0, len(names))
	if len(values) == 0 {
		return out
	}
	total := values[0]
	for i, name := range names {
		if i >= len(values) {
			break
		}
		st := FunnelStage{Name: name, Value: values[i]}
		if total > 0 {
			st.PercentOfTotal = round1(float64(values[i]) / float64(total) * 100)
		}
		if i > 0 && values[i-1] > 0 {
			st.DropOff = round1(float64(values[i-1]-values[i]) / float64(values[i-1]) * 100)
		}
		out = append(out, st)
	}
	return out
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

// compact renders 1234567 as 1.2M and 850000 as 850K.
func compact(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1e9)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1_000:
		return fmt.Sprintf("%dK", n/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
