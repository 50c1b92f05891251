package charts

import (
	"go.uber.org/zap"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
)

// TotalCounter is the counter the distribution is checked against.
const TotalCounter = "total_bins"

// Category maps one donut slice to a snapshot counter.
type Category struct {
	Label   string
	Counter string
	Color   string
}

var telemetryCategories = []Category{
	{Label: "Active", Counter: "active_bins_graph", Color: "#1cc88a"},
	{Label: "Inactive", Counter: "inactive_bins", Color: "#858181"},
	{Label: "Full", Counter: "full_bins", Color: "#ccb011"},
}

var legacyCategories = []Category{
	{Label: "Normal", Counter: "normal_bins", Color: "#1cc88a"},
	{Label: "Full", Counter: "full_bins", Color: "#f6c23e"},
	{Label: "Anomaly", Counter: "anomaly_bins", Color: "#e74a3b"},
}

// CategoriesFor returns the donut slices of a feed variant.
func CategoriesFor(variant models.Variant) []Category {
	switch variant {
	case models.VariantLegacy:
		return append([]Category(nil), legacyCategories...)
	default:
		return append([]Category(nil), telemetryCategories...)
	}
}

// DistributionDataset maps counters 1:1 onto the categories. Missing
// counters count as zero.
func DistributionDataset(snapshot models.BinSnapshot, categories []Category) Dataset {
	ds := Dataset{
		Labels: make([]string, 0, len(categories)),
		Values: make([]int, 0, len(categories)),
		Colors: make([]string, 0, len(categories)),
	}
	for _, c := range categories {
		n, _ := snapshot.Counter(c.Counter)
		ds.Labels = append(ds.Labels, c.Label)
		ds.Values = append(ds.Values, n)
		ds.Colors = append(ds.Colors, c.Color)
	}
	return ds
}

// TrendDataset orders the full-bin history on the dashboard day.
func TrendDataset(snapshot models.BinSnapshot) Dataset {
	points := SortHours(snapshot.FullBinHistory)
	ds := Dataset{
		Labels: make([]string, 0, len(points)),
		Values: make([]int, 0, len(points)),
	}
	for _, p := range points {
		ds.Labels = append(ds.Labels, p.Hour)
		ds.Values = append(ds.Values, p.FullBins)
	}
	return ds
}

// UpdateResult reports what one chart update drew.
type UpdateResult struct {
	Distribution Dataset
	Trend        Dataset
	// Consistent is false when the snapshot reports a total that the
	// distribution does not add up to.
	Consistent bool
}

// Reconciler redraws both charts from each snapshot. Callers serialise Update.
type Reconciler struct {
	distribution Widget
	trend        Widget
	categories   []Category
	logger       *zap.Logger
}

// NewReconciler binds the two long-lived chart widgets.
func NewReconciler(distribution, trend Widget, categories []Category, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		distribution: distribution,
		trend:        trend,
		categories:   categories,
		logger:       logger,
	}
}

// Update replaces both datasets wholesale and triggers a redraw.
func (r *Reconciler) Update(snapshot models.BinSnapshot) UpdateResult {
	dist := DistributionDataset(snapshot, r.categories)
	trend := TrendDataset(snapshot)

	res := UpdateResult{Distribution: dist, Trend: trend, Consistent: true}
	if total, ok := snapshot.Counter(TotalCounter); ok && total != dist.Sum() {
		res.Consistent = false
		r.logger.Warn("distribution does not match reported total",
			zap.Int("total_bins", total),
			zap.Int("distribution_sum", dist.Sum()),
			zap.Ints("values", dist.Values))
	}

	r.distribution.ReplaceDataset(dist)
	r.distribution.Update()
	r.trend.ReplaceDataset(trend)
	r.trend.Update()
	return res
}
