package present

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sqlchat/sqlchat/internal/query"
)

func TestRenderLineSortsByX(t *testing.T) {
	result := revenueByDate()
	figure, err := RenderChart(result, ChooseChart(result, "line"))
	if err != nil {
		t.Fatalf("RenderChart() error = %v", err)
	}
	want := []Point{{Label: "2026-03-01", Value: 10}, {Label: "2026-03-02", Value: 20}}
	if diff := cmp.Diff(want, figure.Series[0].Points); diff != "" {
		t.Fatalf("points mismatch (-want +got):\n%s", diff)
	}
	if figure.XAxis != "date" || figure.Series[0].Color == "" {
		t.Fatalf("figure = %#v", figure)
	}
	if result.Rows[0][1] != 20.0 {
		t.Fatal("RenderChart reordered the input rows")
	}
}

func TestRenderBarCompositeLabels(t *testing.T) {
	result := query.Result{
		Kind: query.KindRows,
		Columns: []query.Column{
			{Name: "department_name", Kind: query.Categorical},
			{Name: "status", Kind: query.Categorical},
			{Name: "hours", Kind: query.Numeric},
		},
		Rows: [][]any{{"Assembly", "Done", "3.5"}, {"Quality", "Open", nil}},
	}
	figure, err := RenderChart(result, ChooseChart(result, "bar"))
	if err != nil {
		t.Fatalf("RenderChart() error = %v", err)
	}
	want := []Point{{Label: "Assembly-Done", Value: 3.5}}
	if diff := cmp.Diff(want, figure.Series[0].Points); diff != "" {
		t.Fatalf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderScatter(t *testing.T) {
	result := query.Result{
		Kind:    query.KindRows,
		Columns: []query.Column{{Name: "hours", Kind: query.Numeric}, {Name: "cost", Kind: query.Numeric}},
		Rows:    [][]any{{int64(2), 40.0}},
	}
	figure, err := RenderChart(result, ChooseChart(result, "scatter"))
	if err != nil {
		t.Fatalf("RenderChart() error = %v", err)
	}
	point := figure.Series[0].Points[0]
	if point.X == nil || *point.X != 2 || point.Value != 40 {
		t.Fatalf("point = %#v", point)
	}
}

func TestRenderHistogramBins(t *testing.T) {
	result := query.Result{
		Kind:    query.KindRows,
		Columns: []query.Column{{Name: "amount", Kind: query.Numeric}},
		Rows:    [][]any{{1.0}, {2.0}, {3.0}, {4.0}},
	}
	figure, err := RenderChart(result, ChooseChart(result, "histogram"))
	if err != nil {
		t.Fatalf("RenderChart() error = %v", err)
	}
	want := []Point{{Label: "1-2", Value: 1}, {Label: "2-3", Value: 1}, {Label: "3-4", Value: 2}}
	if diff := cmp.Diff(want, figure.Series[0].Points); diff != "" {
		t.Fatalf("bins mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderPie(t *testing.T) {
	result := salesResult()
	figure, err := RenderChart(result, ChooseChart(result, "pie"))
	if err != nil {
		t.Fatalf("RenderChart() error = %v", err)
	}
	want := []Point{{Label: "North", Value: 10.5}, {Label: "South", Value: 7}}
	if diff := cmp.Diff(want, figure.Series[0].Points); diff != "" {
		t.Fatalf("slices mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderChartErrors(t *testing.T) {
	if _, err := RenderChart(salesResult(), nil); err == nil {
		t.Fatal("expected error for nil spec")
	}
	if _, err := RenderChart(salesResult(), &ChartSpec{Family: "bar", X: "missing", Y: []string{"revenue"}}); err == nil {
		t.Fatal("expected error for missing column")
	}
	if _, err := RenderChart(salesResult(), &ChartSpec{Family: "bar", X: "revenue", Y: []string{"region"}}); err == nil {
		t.Fatal("expected error for non-numeric y")
	}
}
