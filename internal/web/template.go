package web

import (
	"encoding/json"
	"html/template"
	"io"

	"github.com/sweeney/atx-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"stateClass": func(s string) string {
		switch s {
		case "on", "off":
			return s
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>ATX Power Control ({{.Board}})</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
button { font-family: monospace; padding: 6px 12px; margin: 0 4px 4px 0; }
button.danger { color: #a00; }
#log { background: #111; color: #ddd; height: 12em; overflow-y: auto; padding: 4px 8px; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>ATX Power Control <small>{{.Board}}</small></h1>

<h2>State</h2>
<table>
<tr><th>Power</th><td id="power-state" class="{{stateClass .LED.Power.State}}">{{.LED.Power.State}}</td></tr>
<tr><th>Since</th><td id="power-since">{{.LED.Power.Since}}</td></tr>
<tr><th>Power LED</th><td id="led-state" class="{{stateClass .LED.State}}">{{.LED.State}}</td></tr>
<tr><th>LED changed</th><td id="led-change">{{.LED.LastChange}}</td></tr>
<tr><th>Last action</th><td id="last-action">{{.LED.Power.LastAction}}</td></tr>
</table>

<h2>Actions</h2>
<p>
<button data-path="/api/power/on">Power On</button>
<button data-path="/api/power/off" data-confirm="Hold the power button to force the host off?">Power Off</button>
<button data-path="/api/power/reset" data-confirm="Reset the host?">Reset</button>
<button class="danger" data-path="/api/system/reboot" data-confirm="Reboot the controller?">Reboot Controller</button>
</p>

<h2>Log</h2>
<div id="log"></div>

<p><a href="/api/power/led">LED JSON</a> | <a href="/api/health">Health</a> | <a href="/metrics">Metrics</a></p>

<script>
(function() {
  var initial = {{.InitialJSON}};
  var logEl = document.getElementById("log");
  var busy = false;

  function log(msg) {
    var line = new Date().toLocaleTimeString() + "  " + msg + "\n";
    logEl.textContent += line;
    logEl.scrollTop = logEl.scrollHeight;
  }

  function setText(id, text, cls) {
    var el = document.getElementById(id);
    el.textContent = text || "";
    if (cls !== undefined) {
      el.className = (cls === "on" || cls === "off") ? cls : "unknown";
    }
  }

  function renderPower(p) {
    if (!p) return;
    setText("power-state", p.state, p.state);
    setText("power-since", p.since);
    setText("last-action", p.last_action ? p.last_action + " (" + p.last_action_age + " ago)" : "");
  }

  function renderLED(d) {
    setText("led-state", d.state, d.state);
    setText("led-change", d.last_change);
    renderPower(d.power);
  }

  function refresh() {
    if (busy) return;
    fetch("/api/power/led").then(function(r) { return r.json(); }).then(renderLED).catch(function() {});
  }

  function waitForController() {
    var tries = 0;
    var timer = setInterval(function() {
      tries++;
      fetch("/api/health").then(function(r) {
        if (r.ok) {
          clearInterval(timer);
          log("controller is back");
          refresh();
        }
      }).catch(function() {
        if (tries > 60) {
          clearInterval(timer);
          log("controller did not come back");
        }
      });
    }, 2000);
  }

  function run(btn) {
    var path = btn.getAttribute("data-path");
    var question = btn.getAttribute("data-confirm");
    if (question && !window.confirm(question)) return;
    busy = true;
    log(btn.textContent + "...");
    fetch(path, { method: "POST" }).then(function(r) {
      return r.json().then(function(d) { return { code: r.status, data: d }; });
    }).then(function(res) {
      var d = res.data;
      if (d.message) log(d.message);
      else log((d.action || btn.textContent) + ": " + (d.status || res.code));
      renderPower(d.power_state);
      if (d.reboot && d.reboot.scheduled) waitForController();
    }).catch(function(err) {
      log(btn.textContent + " failed: " + err);
    }).then(function() {
      busy = false;
    });
  }

  document.querySelectorAll("button[data-path]").forEach(function(btn) {
    btn.addEventListener("click", function() { run(btn); });
  });

  renderLED(initial);
  setInterval(refresh, 2000);
})();
</script>
</body>
</html>
`

// renderIndex writes the status page with led embedded as the initial state.
func renderIndex(w io.Writer, board string, led status.LEDJSON) error {
	initial, err := json.Marshal(led)
	if err != nil {
		return err
	}
	return indexTmpl.Execute(w, struct {
		Board       string
		LED         status.LEDJSON
		InitialJSON template.JS
	}{
		Board:       board,
		LED:         led,
		InitialJSON: template.JS(initial),
	})
}
