package net

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/FlavioCFOliveira/DNet/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// ErrDataset reports unusable training data.
var ErrDataset = errors.New("net: invalid dataset")

// Dataset holds samples in feature layout: Features is (features, samples)
// and Labels is (labels, samples).
type Dataset struct {
	Features *tensor.Tensor
	Labels   *tensor.Tensor
}

// NewDataset pairs feature and label tensors with the same sample count.
func NewDataset(features, labels *tensor.Tensor) (*Dataset, error) {
	fd, err := tensor.Features(features)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	ld, err := tensor.Features(labels)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	if fd.Batch != ld.Batch {
		return nil, fmt.Errorf("%w: %d feature samples, %d label samples", ErrDataset, fd.Batch, ld.Batch)
	}
	return &Dataset{Features: features, Labels: labels}, nil
}

// LoadCSV reads a numeric CSV file. See ReadCSV.
func LoadCSV(filename string, labelCols []int, hasHeader bool) (*Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("load csv: %w", err)
	}
	defer file.Close()
	return ReadCSV(file, labelCols, hasHeader)
}

// ReadCSV parses numeric records from r. The columns in labelCols become
// label rows in the order given; every other column becomes a feature row
// in file order.
func ReadCSV(r io.Reader, labelCols []int, hasHeader bool) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	if hasHeader {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: empty csv", ErrDataset)
			}
			return nil, fmt.Errorf("read csv header: %w", err)
		}
	}

	// values holds the records back to back, one sample per record.
	var values []float64
	width := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		width = len(record)
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				line, col := reader.FieldPos(j)
				return nil, fmt.Errorf("%w: line %d, column %d: %w", ErrDataset, line, col, err)
			}
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: csv has no data rows", ErrDataset)
	}

	rows, numLabels, err := columnRows(width, labelCols)
	if err != nil {
		return nil, err
	}
	samples := len(values) / width
	features := tensor.Zeros(width-numLabels, samples)
	labels := tensor.Zeros(numLabels, samples)
	for s := 0; s < samples; s++ {
		for j, v := range values[s*width : (s+1)*width] {
			if rows[j] < 0 {
				labels.Data()[(-rows[j]-1)*samples+s] = v
			} else {
				features.Data()[rows[j]*samples+s] = v
			}
		}
	}
	return &Dataset{Features: features, Labels: labels}, nil
}

// columnRows maps each of width columns to its destination row: a feature
// row r as r, a label row k as -k-1.
func columnRows(width int, labelCols []int) ([]int, int, error) {
	rows := make([]int, width)
	for j := range rows {
		rows[j] = math.MaxInt
	}
	for k, col := range labelCols {
		if col < 0 || col >= width {
			return nil, 0, fmt.Errorf("%w: label column %d out of range for %d columns", ErrDataset, col, width)
		}
		if rows[col] != math.MaxInt {
			return nil, 0, fmt.Errorf("%w: label column %d listed twice", ErrDataset, col)
		}
		rows[col] = -k - 1
	}
	next := 0
	for j, r := range rows {
		if r == math.MaxInt {
			rows[j] = next
			next++
		}
	}
	return rows, len(labelCols), nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	if d.Features == nil {
		return 0
	}
	return d.Features.Dim(1)
}

// Normalize rescales every feature row to [0, 1] by its minimum and maximum.
// Constant features become 0.
func (d *Dataset) Normalize() {
	n := d.Len()
	if n == 0 {
		return
	}
	data := d.Features.Data()
	for f := 0; f < d.Features.Dim(0); f++ {
		row := data[f*n : (f+1)*n]
		lo, hi := floats.Min(row), floats.Max(row)
		floats.AddConst(-lo, row)
		if hi > lo {
			floats.Scale(1/(hi-lo), row)
		}
	}
}

// Split cuts the samples, in order, into the first ratio of them and the
// rest.
func (d *Dataset) Split(ratio float64) (*Dataset, *Dataset, error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return nil, nil, fmt.Errorf("%w: split ratio %v", ErrDataset, ratio)
	}
	cut := int(float64(d.Len()) * ratio)
	head, err := d.samples(0, cut)
	if err != nil {
		return nil, nil, err
	}
	tail, err := d.samples(cut, d.Len())
	if err != nil {
		return nil, nil, err
	}
	return head, tail, nil
}

func (d *Dataset) samples(from, to int) (*Dataset, error) {
	x, err := tensor.SliceBatch(d.Features, from, to)
	if err != nil {
		return nil, err
	}
	y, err := tensor.SliceBatch(d.Labels, from, to)
	if err != nil {
		return nil, err
	}
	return &Dataset{Features: x, Labels: y}, nil
}

// Tensors returns the feature and label tensors, ready for Fit.
func (d *Dataset) Tensors() (*tensor.Tensor, *tensor.Tensor, error) {
	if d.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: no samples", ErrDataset)
	}
	return d.Features, d.Labels, nil
}
