package graphing

import (
	"fmt"
	"html/template"
	"time"
)

// pageHead is injected before </head>: layout for the host header and a
// resize hook so charts follow the window width.
const pageHead = `
<style>
body { max-width: 1400px; margin: 0 auto; padding: 20px;
       font-family: -apple-system, "Segoe UI", Roboto, Arial, sans-serif; }
.meter-header { margin-bottom: 20px; }
.meter-header h1 { margin: 0; font-size: 18px; }
.meter-id { font: 11px monospace; color: #666; margin-bottom: 12px; }
.meter-sections { display: flex; flex-wrap: wrap; gap: 12px; }
.meter-section { flex: 1 1 380px; padding: 12px; background: #f5f5f5; border: 1px solid #ddd; }
.meter-section h3 { margin: 0 0 8px 0; font-size: 13px; }
.meter-section table { width: 100%; border-collapse: collapse; font-size: 12px; }
.meter-section th { width: 160px; text-align: left; font-weight: normal; color: #666; }
.meter-section td { font-family: monospace; word-break: break-all; }
.container { display: block !important; margin: 0 0 10px 0 !important; border: 1px solid #ddd !important; }
</style>
<script>
function resizeCharts() {
    document.querySelectorAll('[_echarts_instance_]').forEach(function(el) {
        var c = echarts.getInstanceByDom(el);
        if (c) c.resize();
    });
}
window.addEventListener('resize', resizeCharts);
window.addEventListener('load', function() { setTimeout(resizeCharts, 100); });
</script>
`

var headerTemplate = template.Must(template.New("header").Parse(`
<div class="meter-header">
  <h1>Inference Meter Report</h1>
  <div class="meter-id">Meter: {{.ID}}</div>
  <div class="meter-sections">
  {{- range .Sections}}
    <section class="meter-section">
      <h3>{{.Title}}</h3>
      <table>
      {{- range .Rows}}
        <tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
      {{- end}}
      </table>
    </section>
  {{- end}}
  </div>
</div>
`))

type infoRow struct {
	Label string
	Value string
}

type infoSection struct {
	Title string
	Rows  []infoRow
}

// add appends a row unless value renders empty or as zero.
func (s *infoSection) add(label string, value interface{}) {
	text := fmt.Sprint(value)
	if text == "" || text == "0" {
		return
	}
	s.Rows = append(s.Rows, infoRow{Label: label, Value: text})
}

func humanBytes(n int64) string {
	if n <= 0 {
		return ""
	}
	const unit = 1024
	v := float64(n)
	for _, suffix := range []string{"B", "KB", "MB", "GB"} {
		if v < unit {
			return fmt.Sprintf("%.2f %s", v, suffix)
		}
		v /= unit
	}
	return fmt.Sprintf("%.2f TB", v)
}

func milliwatts(mw int) string {
	if mw <= 0 {
		return ""
	}
	return fmt.Sprintf("%.0f W", float64(mw)/1000)
}

func unixTime(sec int64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(sec, 0).Format("2006-01-02 15:04:05")
}

func seconds(v float64) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%.6f sec", v)
}
