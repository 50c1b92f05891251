package http

const pageTemplates = `
{{define "head"}}<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css">
  <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
  <style>
    #map { height: 480px; border-radius: 8px; }
    .chart-frame { width: 100%; height: 420px; border: 0; }
    .popup-alert { margin-bottom: 0; }
  </style>
</head>
<body class="bg-light">
<nav class="navbar navbar-dark bg-dark mb-3">
  <div class="container-fluid">
    <span class="navbar-brand">Smart Bins</span>
    <div>
      <a class="btn btn-sm btn-outline-light" href="/">Map</a>
      <a class="btn btn-sm btn-outline-light" href="/table">Table</a>
    </div>
  </div>
</nav>
<main class="container-fluid">
  <div class="alert alert-warning{{if not .Status.Stale}} d-none{{end}}" role="alert" id="stale-banner">
    Data may be out of date. Last successful update: <span id="stale-updated">{{.LastUpdated}}</span>.
    <span id="stale-error">{{with .Status.LastError}}Last error: {{.}}{{end}}</span>
  </div>
{{end}}

{{define "cards"}}
  <div class="row g-3 mb-3">
  {{range $i, $c := .Cards}}
    <div class="col-sm-6 col-xl-3">
      <div class="card border-start border-4 border-{{$c.Tone}} shadow-sm" id="card-{{$i}}">
        <div class="card-body">
          <div class="text-uppercase small text-{{$c.Tone}} fw-bold">{{$c.Label}}</div>
          <div class="h4 mb-0 card-value">{{$c.Value}}</div>
          <div class="small text-muted card-detail">{{$c.Detail}}</div>
        </div>
      </div>
    </div>
  {{end}}
  </div>
{{end}}

{{define "foot"}}
  <p class="text-muted small">Feed: {{.Variant}} &middot; updated {{.LastUpdated}}</p>
</main>
</body>
</html>
{{end}}

{{define "index"}}{{template "head" .}}
{{template "cards" .}}
  <div class="row g-3 mb-3">
    <div class="col-lg-8">
      <div id="map"
           data-lat="{{.Center.Lat}}" data-lng="{{.Center.Lng}}" data-zoom="{{.Zoom}}"
           data-key="{{.MapAPIKey}}" data-refresh="{{.RefreshMS}}"></div>
    </div>
    <div class="col-lg-4">
      <iframe class="chart-frame" src="/charts/distribution" title="Bin status"></iframe>
    </div>
  </div>
  <div class="row g-3 mb-3">
    <div class="col-12">
      <iframe class="chart-frame" src="/charts/trend" title="Full bins per hour"></iframe>
    </div>
  </div>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script>
(function () {
  var el = document.getElementById("map");
  var map = L.map(el).setView([parseFloat(el.dataset.lat), parseFloat(el.dataset.lng)], parseInt(el.dataset.zoom, 10));
  var tiles = el.dataset.key
    ? "https://api.maptiler.com/maps/streets/{z}/{x}/{y}.png?key=" + encodeURIComponent(el.dataset.key)
    : "https://tile.openstreetmap.org/{z}/{x}/{y}.png";
  L.tileLayer(tiles, { maxZoom: 19, attribution: "&copy; OpenStreetMap contributors" }).addTo(map);

  var layer = L.layerGroup().addTo(map);
  function openPopup(marker, id) {
    fetch("/api/v1/map/markers/" + encodeURIComponent(id) + "/click", { method: "POST" })
      .then(function (r) { return r.ok ? r.json() : null; })
      .then(function (body) {
        if (body) { marker.bindPopup(body.data.popup).openPopup(); }
      });
  }
  var banner = document.getElementById("stale-banner");
  function refreshStatus() {
    fetch("/api/v1/status")
      .then(function (r) { return r.json(); })
      .then(function (body) {
        var st = body.data || {};
        banner.classList.toggle("d-none", !st.stale);
        document.getElementById("stale-updated").textContent =
          st.last_success ? new Date(st.last_success).toLocaleString() : "never";
        document.getElementById("stale-error").textContent =
          st.last_error ? "Last error: " + st.last_error : "";
      });
    fetch("/api/v1/summary")
      .then(function (r) { return r.json(); })
      .then(function (body) {
        (body.data || []).forEach(function (c, i) {
          var card = document.getElementById("card-" + i);
          if (!card) { return; }
          card.querySelector(".card-value").textContent = c.value;
          card.querySelector(".card-detail").textContent = c.detail || "";
        });
      });
  }
  function refresh() {
    refreshStatus();
    fetch("/api/v1/map/markers")
      .then(function (r) { return r.json(); })
      .then(function (body) {
        layer.clearLayers();
        (body.data || []).forEach(function (m) {
          var marker = L.marker([m.position.lat, m.position.lng], { title: m.title }).addTo(layer);
          marker.on("click", function () { openPopup(marker, m.id); });
        });
        document.querySelectorAll(".chart-frame").forEach(function (f) { f.src = f.src; });
      });
  }
  refresh();
  setInterval(refresh, parseInt(el.dataset.refresh, 10) || 10000);
})();
</script>
{{template "foot" .}}{{end}}

{{define "table"}}{{template "head" .}}
{{template "cards" .}}
  <div class="card shadow-sm mb-3">
    <div class="card-body table-responsive">
      <table class="table table-sm table-striped align-middle" id="bin-table">
        <thead>
          <tr>
            <th>ID</th><th>Name</th><th>Location</th><th>Fill Level</th><th>Temperature</th>
            <th>Humidity</th><th>Smoke</th><th>Status</th><th>Anomaly</th><th>Last Updated</th>
          </tr>
        </thead>
        <tbody>
        {{range .Rows}}
          <tr{{if .Anomalous}} class="table-danger"{{end}}>
            <td>{{.ID}}</td><td>{{.Name}}</td><td>{{.Location}}</td><td>{{.FillLevel}}</td>
            <td>{{.Temperature}}</td><td>{{.Humidity}}</td><td>{{.Smoke}}</td>
            <td>{{if .Active}}<span class="badge bg-success">ON</span>{{else}}<span class="badge bg-secondary">OFF</span>{{end}}</td>
            <td>{{.Anomaly}}</td><td>{{.ReceivedAt}}</td>
          </tr>
        {{else}}
          <tr><td colspan="10" class="text-center text-muted">No bins reported yet</td></tr>
        {{end}}
        </tbody>
      </table>
    </div>
  </div>
{{template "foot" .}}{{end}}
`
