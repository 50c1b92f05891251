package mapview

import (
	"html/template"
	"sync"

	"github.com/google/uuid"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
)

// Canvas is the server-side map widget. It mirrors what the browser map
// shows: the attached markers, their click handlers and the open popups.
// Every marker gets a fresh UUID, so a bin re-placed in the next cycle is a
// different marker.
//
// Readers see the published set. Outside a batch every Attach and Detach
// publishes at once; inside one, nothing is published until Commit.
type Canvas struct {
	mu       sync.RWMutex
	center   models.LatLng
	zoom     int
	order    []string
	attached map[string]*canvasMarker
	open     map[string]Popup

	batching  bool
	published []*canvasMarker
	shown     map[string]*canvasMarker
}

// MarkerView is a read-only copy of an attached marker.
type MarkerView struct {
	ID       string        `json:"id"`
	Position models.LatLng `json:"position"`
	Title    string        `json:"title"`
}

// NewCanvas constructs an empty canvas centred on center at the given zoom.
func NewCanvas(center models.LatLng, zoom int) *Canvas {
	return &Canvas{
		center:   center,
		zoom:     zoom,
		attached: make(map[string]*canvasMarker),
		open:     make(map[string]Popup),
		shown:    make(map[string]*canvasMarker),
	}
}

// Begin implements Batcher.
func (c *Canvas) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batching = true
}

// Commit implements Batcher. It publishes everything attached and detached
// since Begin in one step.
func (c *Canvas) Commit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batching = false
	c.publishLocked()
}

func (c *Canvas) publishLocked() {
	if c.batching {
		return
	}
	published := make([]*canvasMarker, 0, len(c.order))
	shown := make(map[string]*canvasMarker, len(c.order))
	for _, id := range c.order {
		m := c.attached[id]
		published = append(published, m)
		shown[id] = m
	}
	c.published = published
	c.shown = shown
}

// Center returns the construction centre.
func (c *Canvas) Center() models.LatLng { return c.center }

// Zoom returns the construction zoom level.
func (c *Canvas) Zoom() int { return c.zoom }

// CreateMarker implements Surface.
func (c *Canvas) CreateMarker(pos models.LatLng, title string) Marker {
	return &canvasMarker{id: uuid.NewString(), pos: pos, title: title}
}

// Attach implements Surface.
func (c *Canvas) Attach(m Marker) {
	cm, ok := m.(*canvasMarker)
	if !ok || cm.isReleased() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.attached[cm.id]; exists {
		return
	}
	c.attached[cm.id] = cm
	c.order = append(c.order, cm.id)
	c.publishLocked()
}

// Detach implements Surface. Any popup anchored to the marker is closed.
func (c *Canvas) Detach(m Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := m.ID()
	if _, ok := c.attached[id]; !ok {
		return
	}
	delete(c.attached, id)
	delete(c.open, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.publishLocked()
}

// CreatePopup implements Surface.
func (c *Canvas) CreatePopup(content template.HTML) Popup {
	return staticPopup(content)
}

// OpenPopup implements Surface. Popups are tracked per anchor; the canvas
// does not close other markers' popups.
func (c *Canvas) OpenPopup(p Popup, anchor Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.attached[anchor.ID()]; !ok {
		return
	}
	c.open[anchor.ID()] = p
}

// Click activates the handler of a published marker and returns the popup
// opened for it, if any.
func (c *Canvas) Click(id string) (Popup, bool) {
	c.mu.RLock()
	cm, ok := c.shown[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if fn := cm.handler(); fn != nil {
		fn()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.open[id]
	return p, ok
}

// Markers returns the published markers in attach order.
func (c *Canvas) Markers() []MarkerView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	views := make([]MarkerView, 0, len(c.published))
	for _, m := range c.published {
		views = append(views, MarkerView{ID: m.id, Position: m.pos, Title: m.title})
	}
	return views
}

// OpenPopups returns the number of currently open popups.
func (c *Canvas) OpenPopups() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.open)
}

type staticPopup template.HTML

func (p staticPopup) Content() template.HTML { return template.HTML(p) }

type canvasMarker struct {
	id    string
	pos   models.LatLng
	title string

	mu       sync.Mutex
	onClick  func()
	released bool
}

func (m *canvasMarker) ID() string              { return m.id }
func (m *canvasMarker) Position() models.LatLng { return m.pos }
func (m *canvasMarker) Title() string           { return m.title }

func (m *canvasMarker) OnClick(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return
	}
	m.onClick = fn
}

func (m *canvasMarker) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	m.onClick = nil
}

func (m *canvasMarker) handler() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onClick
}

func (m *canvasMarker) isReleased() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}
