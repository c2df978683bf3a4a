package ingress

import (
	"html/template"
	"net/http"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/ports"
)

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5">
<title>Tot! Discord Bridge</title>
<style>
body { font-family: sans-serif; background: #2f3136; color: #dcddde; margin: 2em; }
.card { background: #36393f; border-radius: 8px; padding: 1em 1.5em; margin-bottom: 1em; }
.alert { border-left: 4px solid; padding: .5em 1em; margin-bottom: 1em; }
.critical { border-color: #f04747; } .warning { border-color: #faa61a; }
h1 { color: #fff; } h2 { color: #b9bbbe; font-size: 1.1em; }
</style>
</head>
<body>
<h1>Tot! &rarr; Discord Bridge</h1>
{{if gt .Performance.RateLimitsGlobal 0}}<div class="alert critical"><strong>CRITICAL:</strong> {{.Performance.RateLimitsGlobal}} global rate limit(s) hit. Reduce traffic.</div>{{end}}
{{if .RateLimit.Active}}<div class="alert warning"><strong>PAUSED:</strong> delivery resumes in {{.RateLimit.ResumeInSeconds}}s{{with .RateLimit.LastScope}} (last rate limit: {{.}}){{end}}.</div>{{end}}
{{if gt .Messages.TotalDropped 0}}<div class="alert warning"><strong>WARNING:</strong> {{.Messages.TotalDropped}} message(s) lost since startup.</div>{{end}}
<div class="card">
<p><strong>Status:</strong> <span style="color: {{.Status.Color}};">&#9679; {{.Status}}</span></p>
<p><strong>Uptime:</strong> {{.Uptime}}</p>
</div>
<div class="card">
<h2>Queue</h2>
<p><strong>Current:</strong> {{.Queue.Current}} / {{.Queue.Max}} ({{.Queue.Percent}}%)</p>
<p><strong>Sending:</strong> {{.Queue.InFlight}}</p>
<p><strong>Awaiting retry:</strong> {{.Queue.Deferred}}</p>
<p><strong>Historical peak:</strong> {{.Queue.Peak}}{{with .Queue.PeakTime}} (at {{.Format "15:04:05"}}){{end}}</p>
</div>
<div class="card">
<h2>Throughput (last 5 minutes)</h2>
<p><strong>Received:</strong> {{.Messages.ReceivedPerMinute}}/min</p>
<p><strong>Sent:</strong> {{.Messages.SentPerMinute}}/min</p>
<p><strong>Peak messages/min:</strong> {{.Messages.PeakPerMinute}}</p>
</div>
<div class="card">
<h2>Totals</h2>
<p><strong>Received:</strong> {{.Messages.TotalReceived}} &middot; <strong>Sent:</strong> {{.Messages.TotalSent}} &middot; <strong>Lost:</strong> {{.Messages.TotalDropped}} &middot; <strong>Failed:</strong> {{.Messages.TotalFailed}} &middot; <strong>Ignored:</strong> {{.Messages.TotalFiltered}}</p>
</div>
<div class="card">
<h2>Discord</h2>
<p><strong>Requests:</strong> {{.Performance.TotalRequests}} ({{.Performance.RequestsPerMinute}}/min)</p>
<p><strong>Rate limits:</strong> {{.Performance.RateLimits}} (global {{.Performance.RateLimitsGlobal}}, shared {{.Performance.RateLimitsShared}}, user {{.Performance.RateLimitsUser}})</p>
<p><strong>Transport errors:</strong> {{.Performance.TransportErrors}}</p>
<p><strong>Average latency:</strong> {{.Performance.AverageLatencyMs}} ms</p>
</div>
{{with .Config}}<div class="card">
<h2>Configuration</h2>
<p>Batch every {{.BatchDelay}}s, up to {{.MaxBatchSize}} messages, {{.InterRequestDelay}}s between requests{{if gt .MaxDiscordRequests 0}}, max {{.MaxDiscordRequests}} request(s) per cycle{{end}}.</p>
<p><strong>Theoretical capacity:</strong> {{.TheoreticalCapacity}} messages/min</p>
</div>{{end}}
<p><a href="/stats" style="color:#00b0f4">JSON stats</a></p>
</body>
</html>
`))

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	snap := s.relay.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusPage.Execute(w, snap); err != nil {
		s.logger.Warn("render status page", ports.Err(err))
	}
}
