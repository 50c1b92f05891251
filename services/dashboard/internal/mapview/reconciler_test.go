package mapview

import (
	"errors"
	"fmt"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/popup"
)

// recordingSurface logs every call so ordering can be asserted.
type recordingSurface struct {
	calls    []string
	next     int
	attached map[string]*fakeMarker
}

type fakeMarker struct {
	id       string
	pos      models.LatLng
	title    string
	onClick  func()
	released bool
}

func (m *fakeMarker) ID() string              { return m.id }
func (m *fakeMarker) Position() models.LatLng { return m.pos }
func (m *fakeMarker) Title() string           { return m.title }
func (m *fakeMarker) OnClick(fn func())       { m.onClick = fn }
func (m *fakeMarker) Release()                { m.released = true; m.onClick = nil }

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{attached: make(map[string]*fakeMarker)}
}

func (s *recordingSurface) CreateMarker(pos models.LatLng, title string) Marker {
	s.next++
	m := &fakeMarker{id: fmt.Sprintf("m%d", s.next), pos: pos, title: title}
	s.calls = append(s.calls, "create:"+m.id)
	return m
}

func (s *recordingSurface) Attach(m Marker) {
	s.calls = append(s.calls, "attach:"+m.ID())
	s.attached[m.ID()] = m.(*fakeMarker)
}

func (s *recordingSurface) Detach(m Marker) {
	s.calls = append(s.calls, "detach:"+m.ID())
	delete(s.attached, m.ID())
}

func (s *recordingSurface) CreatePopup(content template.HTML) Popup { return staticPopup(content) }

func (s *recordingSurface) OpenPopup(p Popup, anchor Marker) {
	s.calls = append(s.calls, "open:"+anchor.ID())
}

// batchingSurface additionally records Begin and Commit.
type batchingSurface struct {
	*recordingSurface
}

func (s batchingSurface) Begin()  { s.calls = append(s.calls, "begin") }
func (s batchingSurface) Commit() { s.calls = append(s.calls, "commit") }

func bin(id string, lat, lng float64) models.BinRecord {
	return models.BinRecord{
		ID:       id,
		Name:     "device-" + id,
		Position: &models.LatLng{Lat: lat, Lng: lng},
		Active:   models.ActiveYes,
		Anomaly:  models.NoAnomaly,
	}
}

func TestReconcile_PlacesOneMarkerPerValidBin(t *testing.T) {
	surface := newRecordingSurface()
	r := NewReconciler(surface, popup.Build, zaptest.NewLogger(t))

	res := r.Reconcile(models.BinSnapshot{Bins: []models.BinRecord{
		bin("1", 1.35, 103.82),
		{ID: "2", Name: "no-gps"},
		bin("3", 1.30, 103.80),
		{ID: "4", Position: &models.LatLng{Lat: 120, Lng: 0}},
	}})

	assert.Equal(t, ReconcileResult{Removed: 0, Placed: 2, Skipped: 2}, res)
	assert.Equal(t, 2, r.Tracked())
	assert.Len(t, surface.attached, 2)
}

func TestReconcile_ClearsPreviousCycleFirst(t *testing.T) {
	surface := newRecordingSurface()
	r := NewReconciler(surface, popup.Build, zaptest.NewLogger(t))

	snap := models.BinSnapshot{Bins: []models.BinRecord{bin("1", 1.35, 103.82), bin("2", 1.36, 103.83)}}
	r.Reconcile(snap)
	firstCycle := make([]*fakeMarker, 0, len(surface.attached))
	for _, m := range surface.attached {
		firstCycle = append(firstCycle, m)
	}
	surface.calls = nil

	res := r.Reconcile(snap)
	assert.Equal(t, ReconcileResult{Removed: 2, Placed: 2}, res)

	// both detaches happen before the first create
	require.GreaterOrEqual(t, len(surface.calls), 3)
	assert.Equal(t, "detach:m1", surface.calls[0])
	assert.Equal(t, "detach:m2", surface.calls[1])
	assert.Equal(t, "create:m3", surface.calls[2])

	for _, m := range firstCycle {
		assert.True(t, m.released, "marker %s from the previous cycle was not released", m.id)
		_, stillAttached := surface.attached[m.id]
		assert.False(t, stillAttached)
	}
	assert.Len(t, surface.attached, 2)
}

func TestReconcile_EmptySnapshotLeavesNoMarkers(t *testing.T) {
	surface := newRecordingSurface()
	r := NewReconciler(surface, popup.Build, nil)

	r.Reconcile(models.BinSnapshot{Bins: []models.BinRecord{bin("1", 1.35, 103.82)}})
	res := r.Reconcile(models.BinSnapshot{})

	assert.Equal(t, ReconcileResult{Removed: 1}, res)
	assert.Zero(t, r.Tracked())
	assert.Empty(t, surface.attached)
}

func TestReconcile_ClickOpensPopupOnItsMarker(t *testing.T) {
	surface := newRecordingSurface()
	r := NewReconciler(surface, popup.Build, nil)

	r.Reconcile(models.BinSnapshot{Bins: []models.BinRecord{bin("1", 1.35, 103.82), bin("2", 1.36, 103.83)}})
	surface.calls = nil

	surface.attached["m2"].onClick()
	surface.attached["m1"].onClick()
	assert.Equal(t, []string{"open:m2", "open:m1"}, surface.calls)
}

func TestReconcile_Title(t *testing.T) {
	surface := newRecordingSurface()
	r := NewReconciler(surface, nil, nil)

	withLocation := bin("7", 1.3, 103.8)
	withLocation.Location = "Block 12"
	r.Reconcile(models.BinSnapshot{Bins: []models.BinRecord{withLocation, bin("8", 1.3, 103.8)}})

	assert.Equal(t, "Bin 7 - Block 12", surface.attached["m1"].title)
	assert.Equal(t, "Bin 8 - device-8", surface.attached["m2"].title)
	assert.Nil(t, surface.attached["m1"].onClick, "no builder means no popup handler")
}

func TestReconcile_PopupFailureStillPlacesMarker(t *testing.T) {
	surface := newRecordingSurface()
	failing := func(models.BinRecord) (template.HTML, error) { return "", errors.New("boom") }
	r := NewReconciler(surface, failing, zaptest.NewLogger(t))

	res := r.Reconcile(models.BinSnapshot{Bins: []models.BinRecord{bin("1", 1.35, 103.82)}})
	assert.Equal(t, 1, res.Placed)
	assert.Nil(t, surface.attached["m1"].onClick)
}

func TestReconcile_MarkerCountMatchesValidRecords(t *testing.T) {
	canvas := NewCanvas(models.LatLng{Lat: 1.3521, Lng: 103.8198}, 12)
	r := NewReconciler(canvas, popup.Build, nil)

	for n := 0; n < 20; n += 7 {
		bins := make([]models.BinRecord, 0, n+1)
		for i := 0; i < n; i++ {
			bins = append(bins, bin(fmt.Sprint(i), 1.3+float64(i)*0.001, 103.8))
		}
		bins = append(bins, models.BinRecord{ID: "broken"})

		r.Reconcile(models.BinSnapshot{Bins: bins})
		assert.Len(t, canvas.Markers(), n)
		assert.Equal(t, n, r.Tracked())
	}
}

func TestReconcile_BatchesWholeCycle(t *testing.T) {
	surface := batchingSurface{newRecordingSurface()}
	r := NewReconciler(surface, nil, zaptest.NewLogger(t))

	r.Reconcile(models.BinSnapshot{Bins: []models.BinRecord{bin("1", 1.35, 103.82)}})
	surface.calls = nil

	r.Reconcile(models.BinSnapshot{Bins: []models.BinRecord{bin("1", 1.35, 103.82)}})
	assert.Equal(t, []string{"begin", "detach:m1", "create:m2", "attach:m2", "commit"}, surface.calls)
}
