// Package mapview holds the map-widget contract, the in-process canvas that
// backs the browser map, and the marker reconciler.
package mapview

import (
	"html/template"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
)

// Surface is the map widget the reconciler draws on.
type Surface interface {
	// CreateMarker builds a detached marker at pos.
	CreateMarker(pos models.LatLng, title string) Marker
	// Attach makes a marker visible on the surface.
	Attach(m Marker)
	// Detach removes a marker from the surface.
	Detach(m Marker)
	// CreatePopup builds an unopened popup with the given content.
	CreatePopup(content template.HTML) Popup
	// OpenPopup shows p anchored to the given marker.
	OpenPopup(p Popup, anchor Marker)
}

// Batcher is implemented by surfaces that can hold back a set of Attach and
// Detach calls and show them together. Between Begin and Commit readers keep
// seeing the markers of the previous Commit.
type Batcher interface {
	Begin()
	Commit()
}

// Marker is a surface-owned handle for one pin.
type Marker interface {
	ID() string
	Position() models.LatLng
	Title() string
	// OnClick registers the activation handler, replacing any previous one.
	OnClick(fn func())
	// Release drops the handler and any surface resources. A released marker
	// must not be attached again.
	Release()
}

// Popup is an info window.
type Popup interface {
	Content() template.HTML
}
