package templates

import (
	"context"
	"html/template"
	"io"
	"slices"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
)

var funcs = template.FuncMap{
	"money":         Money,
	"optionalMoney": OptionalMoney,
	"date": func(s models.Sale) string {
		return s.Date.Format(models.DateLayout)
	},
	"cell": func(ct models.CrossTab, product, region string) string {
		if v, ok := ct.Value(product, region); ok {
			return Money(v, 0)
		}
		return ""
	},
}

var fragmentTemplates = template.Must(template.New("fragments").Funcs(funcs).Parse(`
{{define "filters"}}<div id="filters">
<fieldset><legend>Selecciona la(s) Región(es):</legend>
{{range .Regions}}<label><input type="checkbox" data-bind="regions" value="{{.Value}}"{{if .Checked}} checked{{end}}> {{.Value}}</label><br>
{{end}}</fieldset>
<fieldset><legend>Selecciona el(los) Producto(s):</legend>
{{range .Products}}<label><input type="checkbox" data-bind="products" value="{{.Value}}"{{if .Checked}} checked{{end}}> {{.Value}}</label><br>
{{end}}</fieldset>
</div>{{end}}

{{define "kpis"}}<div id="kpis" class="kpi-grid">
<div class="kpi"><div class="kpi-label">Ventas Totales</div><div class="kpi-value">{{money .Total 0}}</div></div>
<div class="kpi"><div class="kpi-label">Venta Promedio</div><div class="kpi-value">{{optionalMoney .Mean 2}}</div></div>
<div class="kpi"><div class="kpi-label">Venta Máxima</div><div class="kpi-value">{{optionalMoney .Max 0}}</div></div>
<p class="kpi-count">{{.Count}} records</p>
</div>{{end}}

{{define "charts"}}<div id="region-chart"><img src="/charts/regions.svg?v={{.}}" alt="Ventas por Región"></div>
<div id="daily-chart"><img src="/charts/daily.svg?v={{.}}" alt="Ventas a lo Largo del Tiempo"></div>{{end}}

{{define "crosstab"}}<div id="crosstab">
<table class="modern-table">
<thead><tr><th>Producto</th>{{range .Regions}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range $p := .Products}}<tr><td>{{$p}}</td>{{range $r := $.Regions}}<td>{{cell $ $p $r}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "sales"}}<div id="sales-table">
<p>Showing {{len .Rows}} of {{.Total}} records</p>
<table class="modern-table">
<thead><tr><th>Región</th><th>Producto</th><th>Ventas</th><th>Fecha</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Region}}</td><td>{{.Product}}</td><td>{{money .Amount 0}}</td><td>{{date .}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}
`))

type option struct {
	Value   string
	Checked bool
}

func fragment(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return fragmentTemplates.ExecuteTemplate(w, name, data)
	})
}

// Filters renders the sidebar checkboxes, ticking the selected values.
func Filters(opts models.FilterOptions, sel models.Selection) templ.Component {
	return fragment("filters", struct {
		Regions  []option
		Products []option
	}{
		Regions:  markSelected(opts.Regions, sel.Regions),
		Products: markSelected(opts.Products, sel.Products),
	})
}

func KPIs(k models.KPIs) templ.Component {
	return fragment("kpis", k)
}

// Charts points the chart images at the given snapshot version so the
// browser refetches them after each filter change.
func Charts(version int64) templ.Component {
	return fragment("charts", version)
}

func CrossTab(ct models.CrossTab) templ.Component {
	return fragment("crosstab", ct)
}

// SalesTable shows at most maxRows records of the view.
func SalesTable(view []models.Sale, maxRows int) templ.Component {
	rows := view
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return fragment("sales", struct {
		Rows  []models.Sale
		Total int
	}{rows, len(view)})
}

func markSelected(values, selected []string) []option {
	out := make([]option, 0, len(values))
	for _, v := range values {
		out = append(out, option{Value: v, Checked: slices.Contains(selected, v)})
	}
	return out
}
