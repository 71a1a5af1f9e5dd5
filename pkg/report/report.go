// Package report 汇总结果行并用 gonum/plot 画出各结构的对比柱状图
package report

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"indexbench/pkg/storage"
)

var ErrNoData = errors.New("report: no results for operation")

// Table 是某个操作在 (索引, 数据集) 上的取值，数据集记为 "dist/size"
type Table struct {
	Operation string
	Indexes   []string
	Datasets  []string
	Values    map[string]map[string]float64 // index -> dataset -> value
}

func datasetLabel(r storage.Result) string {
	return fmt.Sprintf("%s/%d", r.Distribution, r.DataSize)
}

// Collect 按首次出现的顺序整理出指定操作的表
func Collect(results []storage.Result, op string) *Table {
	t := &Table{Operation: op, Values: make(map[string]map[string]float64)}
	for _, r := range results {
		if r.Operation != op {
			continue
		}
		ds := datasetLabel(r)
		if !slices.Contains(t.Indexes, r.Index) {
			t.Indexes = append(t.Indexes, r.Index)
			t.Values[r.Index] = make(map[string]float64)
		}
		if !slices.Contains(t.Datasets, ds) {
			t.Datasets = append(t.Datasets, ds)
		}
		t.Values[r.Index][ds] = r.Value
	}
	return t
}

// Best 返回每个数据集上取值最小的索引
func (t *Table) Best() map[string]string {
	best := make(map[string]string, len(t.Datasets))
	for _, ds := range t.Datasets {
		first, lowest := true, 0.0
		for _, idx := range t.Indexes {
			v, ok := t.Values[idx][ds]
			if !ok {
				continue
			}
			if first || v < lowest {
				best[ds], lowest, first = idx, v, false
			}
		}
	}
	return best
}

func unit(op string) string {
	switch op {
	case "memory":
		return "bytes"
	case "build_time":
		return "ns"
	default:
		return "ns/op"
	}
}

// Plot 画分组柱状图：横轴是数据集，每个索引一组颜色
func Plot(t *Table, path string) error {
	if len(t.Indexes) == 0 {
		return errors.Wrapf(ErrNoData, "%q", t.Operation)
	}

	p := plot.New()
	p.Title.Text = t.Operation
	p.Y.Label.Text = unit(t.Operation)
	p.Legend.Top = true

	width := vg.Points(float64(60) / float64(len(t.Indexes)))
	for i, idx := range t.Indexes {
		vals := make(plotter.Values, len(t.Datasets))
		for j, ds := range t.Datasets {
			vals[j] = t.Values[idx][ds]
		}
		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return errors.Wrapf(err, "bars for %s", idx)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = width * vg.Length(float64(i)-float64(len(t.Indexes)-1)/2)
		p.Add(bars)
		p.Legend.Add(idx, bars)
	}
	p.NominalX(t.Datasets...)

	w := vg.Length(max(len(t.Datasets), 2)) * 2 * vg.Inch
	if err := p.Save(w, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
