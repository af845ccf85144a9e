package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/curtain-controller/internal/state"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Curtain Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.open { color: green; font-weight: bold; }
.closed { color: #888; }
.ringing { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.fault { color: orange; }
</style>
</head>
<body>
<h1>Curtain Controller</h1>

<h2>Curtain</h2>
<table>
<tr><th>Mode</th><td>{{.Curtain.Mode}}</td></tr>
<tr><th>Position</th><td class="{{if eq (printf "%s" .Curtain.Position) "OPEN"}}open{{else}}closed{{end}}">{{.Curtain.Position}}</td></tr>
</table>

<h2>Sensor</h2>
<table>
<tr><th>Temperature</th><td>{{printf "%.1f" .Reading.TemperatureC}} &deg;C</td></tr>
<tr><th>Humidity</th><td>{{printf "%.1f" .Reading.HumidityPct}} %</td></tr>
<tr><th>Available</th><td class="{{if .SensorDown}}fault{{end}}">{{if .SensorDown}}no{{else}}yes{{end}}</td></tr>
</table>

<h2>Alarm</h2>
<table>
<tr><th>Time</th><td>{{printf "%02d:%02d" .Alarm.Hour .Alarm.Minute}}</td></tr>
<tr><th>Armed</th><td>{{if .Alarm.Armed}}yes{{else}}no{{end}}</td></tr>
<tr><th>Ringing</th><td class="{{if .Alarm.Ringing}}ringing{{end}}">{{if .Alarm.Ringing}}RINGING{{else}}no{{end}}</td></tr>
<tr><th>Buzzer</th><td>{{if .BuzzerOn}}on{{else}}off{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Key presses</th><td>{{.Counts.KeyPresses}}</td></tr>
<tr><th>Remote commands</th><td>{{.Counts.RemoteCommands}}</td></tr>
<tr><th>Readings accepted</th><td>{{.Counts.ReadingsAccepted}}</td></tr>
<tr><th>Readings rejected</th><td>{{.Counts.ReadingsRejected}}</td></tr>
<tr><th>Curtain moves</th><td>{{.Counts.CurtainMoves}}</td></tr>
<tr><th>Alarm rings</th><td>{{.Counts.AlarmRings}}</td></tr>
</table>

{{if .Faults}}<h2>Recent Faults</h2>
<table>
{{range .Faults}}<tr><th class="fault">{{.Source}}</th><td>{{.At.UTC.Format "15:04:05Z"}} {{.Description}}</td></tr>
{{end}}</table>{{end}}

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sensor poll</th><td>{{.Config.SensorPollMs}}ms</td></tr>
<tr><th>Keypad poll</th><td>{{.Config.KeypadPollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceScans}} scans</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap state.Snapshot) {
	// Snapshot has Uptime() method but the template needs a Duration field.
	data := struct {
		state.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
