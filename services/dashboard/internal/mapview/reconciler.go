package mapview

import (
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
)

// PopupBuilder renders the detail view for one bin.
type PopupBuilder func(bin models.BinRecord) (template.HTML, error)

// ReconcileResult summarises one reconciliation cycle.
type ReconcileResult struct {
	Removed int
	Placed  int
	Skipped int
}

// Reconciler replaces the full marker set on a surface from each snapshot.
// It is not safe for concurrent use; callers serialise Reconcile.
type Reconciler struct {
	surface Surface
	build   PopupBuilder
	logger  *zap.Logger
	tracked []Marker
}

// NewReconciler binds a reconciler to a surface.
func NewReconciler(surface Surface, build PopupBuilder, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{surface: surface, build: build, logger: logger}
}

// Reconcile detaches and releases every marker of the previous cycle before
// placing one marker per placeable record. Records without a valid position
// are skipped. On a Batcher surface the whole cycle is published at once.
func (r *Reconciler) Reconcile(snapshot models.BinSnapshot) ReconcileResult {
	if b, ok := r.surface.(Batcher); ok {
		b.Begin()
		defer b.Commit()
	}

	res := ReconcileResult{Removed: len(r.tracked)}
	for _, m := range r.tracked {
		r.surface.Detach(m)
		m.Release()
	}
	r.tracked = nil

	next := make([]Marker, 0, len(snapshot.Bins))
	for _, bin := range snapshot.Bins {
		if !bin.Placeable() {
			res.Skipped++
			r.logger.Debug("skipping bin without position", zap.String("bin_id", bin.ID))
			continue
		}

		marker := r.surface.CreateMarker(*bin.Position, markerTitle(bin))
		r.surface.Attach(marker)

		if r.build != nil {
			content, err := r.build(bin)
			if err != nil {
				r.logger.Warn("popup render failed", zap.String("bin_id", bin.ID), zap.Error(err))
			} else {
				popup := r.surface.CreatePopup(content)
				anchor := marker
				marker.OnClick(func() {
					r.surface.OpenPopup(popup, anchor)
				})
			}
		}

		next = append(next, marker)
	}

	r.tracked = next
	res.Placed = len(next)
	return res
}

// Tracked returns the number of markers placed by the last cycle.
func (r *Reconciler) Tracked() int {
	return len(r.tracked)
}

func markerTitle(bin models.BinRecord) string {
	label := bin.Location
	if label == "" {
		label = bin.Name
	}
	return fmt.Sprintf("Bin %s - %s", bin.ID, label)
}
