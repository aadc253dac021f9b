package templates

import (
	"context"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const datastarBundle = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Dashboard de Ventas</title>
<script type="module" src="{{.Bundle}}"></script>
<style>
body{margin:0;font-family:system-ui,sans-serif;display:flex;min-height:100vh;background:#f6f7f9}
aside{width:280px;padding:1.5rem;background:#fff;border-right:1px solid #e3e5e8}
main{flex:1;padding:1.5rem 2rem}
.kpi-grid{display:grid;grid-template-columns:repeat(3,1fr);gap:1rem}
.kpi{background:#fff;border-radius:8px;padding:1rem;box-shadow:0 1px 2px rgba(0,0,0,.06)}
.kpi-value{font-size:1.6rem;font-weight:600}
.chart-grid{display:grid;grid-template-columns:1fr 1fr;gap:1rem}
.chart-grid img{width:100%;background:#fff;border-radius:8px}
.modern-table{border-collapse:collapse;width:100%;background:#fff}
.modern-table th,.modern-table td{padding:.4rem .6rem;border-bottom:1px solid #eceef1;text-align:left}
</style>
</head>
<body data-signals="{regions: [], products: []}" data-init="@get('/sse/refresh-all')">
<aside data-on:change="@get('/sse/filter')">
<h2>Filtros</h2>
<div id="filters">Loading filters…</div>
<h3>Descargar Datos Filtrados</h3>
<p><a href="/export/csv" download>📥 Descargar CSV</a></p>
<p><a href="/export/xlsx" download>📥 Descargar XLSX</a></p>
</aside>
<main>
<h1>📊 Dashboard de Ventas</h1>
<p class="subtitle">Interactive sales analytics by region and product</p>
<h2>Indicadores Clave de Rendimiento (KPIs)</h2>
<div id="kpis">Loading KPIs…</div>
<div class="chart-grid">
<section><h3>Ventas por Región</h3><div id="region-chart"></div></section>
<section><h3>Ventas a lo Largo del Tiempo</h3><div id="daily-chart"></div></section>
</div>
<h3>Ventas por Producto</h3>
<div id="crosstab">Loading cross-tab…</div>
<h3>Detalles de Ventas</h3>
<div id="sales-table">Loading sales…</div>
</main>
</body>
</html>`))

// Dashboard is the page shell. Every data region is filled in over SSE
// once the page initialises.
func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return dashboardTemplate.Execute(w, struct{ Bundle string }{datastarBundle})
	})
}

// Render materialises c as a string, for use in SSE element patches.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var buf strings.Builder
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
