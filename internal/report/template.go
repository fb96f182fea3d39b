package report

import "html/template"

// 报告模板：单文件自包含，样式内联，打印友好（@media print 去阴影）。
var tmpl = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>UserGuiding Analytics Report</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 24px; color: #222; }
h1 { font-size: 22px; margin-bottom: 2px; }
h2 { font-size: 16px; margin-top: 28px; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
.meta { color: #777; font-size: 12px; }
table { border-collapse: collapse; margin-top: 10px; font-size: 13px; }
th, td { border: 1px solid #ddd; padding: 5px 10px; text-align: left; }
th { background: #f5f5f5; }
td.num { text-align: right; }
.row { display: flex; gap: 32px; flex-wrap: wrap; align-items: flex-start; }
.bars { display: flex; align-items: flex-end; gap: 8px; height: 120px; margin-top: 12px; }
.bars .bar { width: 36px; background: #4e79a7; border-radius: 2px 2px 0 0; }
.bars .col { display: flex; flex-direction: column; align-items: center; height: 100%; justify-content: flex-end; }
.bars .lbl { font-size: 10px; margin-top: 4px; max-width: 48px; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
.pie { width: 120px; height: 120px; border-radius: 50%; margin-top: 12px; }
.legend { font-size: 12px; margin-top: 8px; }
.legend span { display: inline-block; width: 10px; height: 10px; margin-right: 4px; border-radius: 2px; }
ul.insights li { margin: 6px 0; }
@media print { body { margin: 8mm; } .pie, .bars .bar { print-color-adjust: exact; -webkit-print-color-adjust: exact; } }
</style>
</head>
<body>
<h1>UserGuiding Analytics Report</h1>
<p class="meta">Generated {{.GeneratedAt}} · run {{.RunID}}</p>

<h2>Datasets</h2>
<table id="dataset-counts">
<tr><th>Dataset</th><th>Records</th></tr>
{{range .Counts}}<tr><td>{{.Name}}</td><td class="num">{{.Count}}</td></tr>
{{end}}</table>

<h2>User breakdowns</h2>
<div class="row">
  <div>
    <h3>Device share</h3>
    <div class="pie" style="{{.DevicePie}}"></div>
    <div class="legend">{{range .DeviceHist}}<div>{{.Name}}: {{printf "%.1f" .Pct}}%</div>{{end}}</div>
  </div>
  <div>
    <h3>Browsers</h3>
    <div class="bars">{{range .BrowserHist}}<div class="col"><div class="bar" style="{{.Bar}}" title="{{.Count}}"></div><div class="lbl">{{.Name}}</div></div>{{end}}</div>
  </div>
  <div>
    <h3>Operating systems</h3>
    <div class="bars">{{range .OSHist}}<div class="col"><div class="bar" style="{{.Bar}}" title="{{.Count}}"></div><div class="lbl">{{.Name}}</div></div>{{end}}</div>
  </div>
</div>

<h2>Surveys</h2>
<table id="survey-counts">
<tr><th>Survey</th><th>Responses</th><th>Share</th></tr>
{{range .SurveyCounts}}<tr><td>{{.Name}}</td><td class="num">{{.Count}}</td><td class="num">{{printf "%.1f" .Pct}}%</td></tr>
{{end}}</table>
{{if .TopChoices}}
<h3>Most selected choices</h3>
<table id="top-choices">
<tr><th>Choice</th><th>Picks</th></tr>
{{range .TopChoices}}<tr><td>{{.Name}}</td><td class="num">{{.Count}}</td></tr>
{{end}}</table>
{{end}}

<h2>Companies</h2>
<table id="top-companies">
<tr><th>Company</th><th>Active users</th><th>Share</th></tr>
{{range .TopCompanies}}<tr><td>{{.Name}}</td><td class="num">{{.Count}}</td><td class="num">{{printf "%.1f" .Pct}}%</td></tr>
{{end}}</table>

<h2>Responses by device</h2>
<table id="device-cross">
<tr><th>Device</th><th>Responses</th><th>Share</th></tr>
{{range .DeviceCross}}<tr><td>{{.Name}}</td><td class="num">{{.Count}}</td><td class="num">{{printf "%.1f" .Pct}}%</td></tr>
{{end}}</table>

<h2>Key insights</h2>
<ul class="insights">
{{range .Insights}}<li>{{.}}</li>
{{end}}</ul>
</body>
</html>
`))
