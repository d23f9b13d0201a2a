package present

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sqlchat/sqlchat/internal/query"
)

var palette = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Figure is a backend-neutral chart description ready for a frontend to draw.
type Figure struct {
	ChartType string   `json:"chart_type"`
	XAxis     string   `json:"x_axis,omitempty"`
	YAxis     string   `json:"y_axis,omitempty"`
	Series    []Series `json:"series"`
}

type Series struct {
	Name   string  `json:"name"`
	Color  string  `json:"color,omitempty"`
	Points []Point `json:"points"`
}

// Point carries X only for scatter charts; other families label the point.
type Point struct {
	Label string   `json:"label"`
	X     *float64 `json:"x,omitempty"`
	Value float64  `json:"value"`
}

func RenderChart(result query.Result, spec *ChartSpec) (*Figure, error) {
	if spec == nil {
		return nil, fmt.Errorf("chart spec is required")
	}
	if !result.HasRows() {
		return nil, fmt.Errorf("result has no rows")
	}

	var (
		figure *Figure
		err    error
	)
	switch spec.Family {
	case FamilyLine, FamilyTrend:
		figure, err = renderCategorySeries(result, spec, true)
	case FamilyBar:
		figure, err = renderCategorySeries(result, spec, false)
	case FamilyScatter:
		figure, err = renderScatter(result, spec)
	case FamilyHistogram:
		figure, err = renderHistogram(result, spec)
	case FamilyPie:
		figure, err = renderPie(result, spec)
	default:
		return nil, fmt.Errorf("unsupported chart family %q", spec.Family)
	}
	if err != nil {
		return nil, err
	}
	for i := range figure.Series {
		figure.Series[i].Color = palette[i%len(palette)]
	}
	return figure, nil
}

func renderCategorySeries(result query.Result, spec *ChartSpec, sortByX bool) (*Figure, error) {
	xColumns := spec.CompositeX
	if len(xColumns) == 0 {
		xColumns = []string{spec.X}
	}
	xIndexes, err := columnIndexes(result, xColumns)
	if err != nil {
		return nil, err
	}
	yIndexes, err := columnIndexes(result, spec.Y)
	if err != nil {
		return nil, err
	}
	if len(yIndexes) == 0 {
		return nil, fmt.Errorf("at least one y column is required")
	}

	rows := result.Rows
	if sortByX {
		rows = make([][]any, len(result.Rows))
		copy(rows, result.Rows)
		sort.SliceStable(rows, func(i, j int) bool { return lessValue(rows[i][xIndexes[0]], rows[j][xIndexes[0]]) })
	}

	series := make([]Series, len(yIndexes))
	for i, yIndex := range yIndexes {
		series[i] = Series{Name: result.Columns[yIndex].Name, Points: make([]Point, 0, len(rows))}
	}
	for _, row := range rows {
		labels := make([]string, len(xIndexes))
		for i, xIndex := range xIndexes {
			labels[i] = FormatValue(row[xIndex])
		}
		label := strings.Join(labels, "-")
		for i, yIndex := range yIndexes {
			if row[yIndex] == nil {
				continue
			}
			value, ok := toFloat(row[yIndex])
			if !ok {
				return nil, fmt.Errorf("column %q has non-numeric value %v", result.Columns[yIndex].Name, row[yIndex])
			}
			series[i].Points = append(series[i].Points, Point{Label: label, Value: value})
		}
	}

	return &Figure{
		ChartType: spec.Family,
		XAxis:     strings.Join(xColumns, "-"),
		YAxis:     strings.Join(spec.Y, ", "),
		Series:    series,
	}, nil
}

func renderScatter(result query.Result, spec *ChartSpec) (*Figure, error) {
	if len(spec.Y) == 0 {
		return nil, fmt.Errorf("scatter requires a y column")
	}
	indexes, err := columnIndexes(result, []string{spec.X, spec.Y[0]})
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(result.Rows))
	for _, row := range result.Rows {
		if row[indexes[0]] == nil || row[indexes[1]] == nil {
			continue
		}
		x, okX := toFloat(row[indexes[0]])
		y, okY := toFloat(row[indexes[1]])
		if !okX || !okY {
			return nil, fmt.Errorf("scatter columns must be numeric")
		}
		points = append(points, Point{Label: FormatValue(row[indexes[0]]), X: &x, Value: y})
	}
	return &Figure{
		ChartType: FamilyScatter,
		XAxis:     spec.X,
		YAxis:     spec.Y[0],
		Series:    []Series{{Name: spec.Y[0], Points: points}},
	}, nil
}

// renderHistogram buckets the column into Sturges bins of equal width.
func renderHistogram(result query.Result, spec *ChartSpec) (*Figure, error) {
	indexes, err := columnIndexes(result, []string{spec.X})
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(result.Rows))
	for _, row := range result.Rows {
		if row[indexes[0]] == nil {
			continue
		}
		value, ok := toFloat(row[indexes[0]])
		if !ok {
			return nil, fmt.Errorf("column %q has non-numeric value %v", spec.X, row[indexes[0]])
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("column %q has no values", spec.X)
	}

	lo, hi := values[0], values[0]
	for _, value := range values {
		lo = math.Min(lo, value)
		hi = math.Max(hi, value)
	}
	bins := int(math.Ceil(math.Log2(float64(len(values))))) + 1
	if hi == lo {
		bins = 1
	}
	width := (hi - lo) / float64(bins)
	counts := make([]float64, bins)
	for _, value := range values {
		bin := bins - 1
		if width > 0 {
			bin = int((value - lo) / width)
			if bin >= bins {
				bin = bins - 1
			}
		}
		counts[bin]++
	}

	points := make([]Point, bins)
	for i, count := range counts {
		start := lo + float64(i)*width
		points[i] = Point{Label: fmt.Sprintf("%s-%s", FormatValue(start), FormatValue(start+width)), Value: count}
	}
	return &Figure{
		ChartType: FamilyHistogram,
		XAxis:     spec.X,
		YAxis:     "count",
		Series:    []Series{{Name: "count", Points: points}},
	}, nil
}

func renderPie(result query.Result, spec *ChartSpec) (*Figure, error) {
	indexes, err := columnIndexes(result, []string{spec.Names, spec.Values})
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(result.Rows))
	for _, row := range result.Rows {
		if row[indexes[1]] == nil {
			continue
		}
		value, ok := toFloat(row[indexes[1]])
		if !ok {
			return nil, fmt.Errorf("column %q has non-numeric value %v", spec.Values, row[indexes[1]])
		}
		points = append(points, Point{Label: FormatValue(row[indexes[0]]), Value: value})
	}
	return &Figure{
		ChartType: FamilyPie,
		Series:    []Series{{Name: spec.Values, Points: points}},
	}, nil
}

func columnIndexes(result query.Result, names []string) ([]int, error) {
	indexes := make([]int, len(names))
	for i, name := range names {
		index := result.ColumnIndex(name)
		if index < 0 {
			return nil, fmt.Errorf("column %q not in result", name)
		}
		indexes[i] = index
	}
	return indexes, nil
}

// lessValue orders NULLs first, then times, numbers and finally text.
func lessValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b != nil
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Before(tb)
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa < fb
		}
	}
	return FormatValue(a) < FormatValue(b)
}
