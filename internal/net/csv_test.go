package net

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FlavioCFOliveira/DNet/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVLoader(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "loader.csv")
	file, err := os.Create(filename)
	require.NoError(t, err)

	writer := csv.NewWriter(file)
	require.NoError(t, writer.WriteAll([][]string{
		{"f1", "f2", "l1", "f3", "l2"},
		{"1.0", "2.0", "0.0", "3.0", "1.0"},
		{"4.0", "5.0", "1.0", "6.0", "0.0"},
	}))
	require.NoError(t, file.Close())

	dataset, err := LoadCSV(filename, []int{4, 2}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, dataset.Len())

	x, y, err := dataset.Tensors()
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, x.Shape())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, x.Data())
	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.Equal(t, []float64{1, 0, 0, 1}, y.Data())
}

func TestReadCSVWithoutLabels(t *testing.T) {
	dataset, err := ReadCSV(strings.NewReader("1, 2\n3, 4\n5, 6\n"), nil, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5, 2, 4, 6}, dataset.Features.Data())
	assert.Equal(t, tensor.Shape{0, 3}, dataset.Labels.Shape())
}

func TestCSVLoaderErrors(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), nil, false)
	assert.ErrorIs(t, err, os.ErrNotExist)

	tests := []struct {
		name      string
		data      string
		labelCols []int
		header    bool
	}{
		{"not a number", "1,x\n", []int{1}, false},
		{"empty", "", nil, true},
		{"header only", "a,b\n", []int{1}, true},
		{"label out of range", "1,2\n", []int{5}, false},
		{"negative label", "1,2\n", []int{-1}, false},
		{"label twice", "1,2,3\n", []int{1, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data), tt.labelCols, tt.header)
			assert.ErrorIs(t, err, ErrDataset)
		})
	}

	_, err = ReadCSV(strings.NewReader("1,2\n3\n"), nil, false)
	assert.ErrorIs(t, err, csv.ErrFieldCount)
}

func TestCSVLogger(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "logger.csv")

	logger := NewCSVLogger(filename, false)
	logger.OnTrainBegin(nil)
	logger.OnEpochEnd(0, 0.5, nil)
	logger.OnEpochEnd(1, 0.4, nil)
	logger.OnTrainEnd(nil)
	require.NoError(t, logger.Err())

	file, err := os.Open(filename)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // Header + 2 epochs
	assert.Equal(t, []string{"epoch", "loss", "time_seconds"}, records[0])
	assert.Equal(t, []string{"0", "0.500000"}, records[1][:2])
	assert.Equal(t, []string{"1", "0.400000"}, records[2][:2])

	// Appending keeps the existing header.
	appender := NewCSVLogger(filename, true)
	appender.OnTrainBegin(nil)
	appender.OnEpochEnd(0, 0.3, nil)
	appender.OnTrainEnd(nil)
	require.NoError(t, appender.Err())

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	records, err = csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestCSVLoggerReportsOpenError(t *testing.T) {
	logger := NewCSVLogger(filepath.Join(t.TempDir(), "missing", "log.csv"), false)
	logger.OnTrainBegin(nil)
	logger.OnEpochEnd(0, 1, nil)
	logger.OnTrainEnd(nil)
	assert.Error(t, logger.Err())
}

func newDataset(t *testing.T, features, labels *tensor.Tensor) *Dataset {
	t.Helper()
	d, err := NewDataset(features, labels)
	require.NoError(t, err)
	return d
}

func TestDatasetNormalization(t *testing.T) {
	features, err := tensor.New(tensor.Shape{3, 3}, []float64{
		10, 20, 30,
		0, 5, 10,
		3, 3, 3,
	})
	require.NoError(t, err)
	dataset := newDataset(t, features, tensor.Zeros(1, 3))

	dataset.Normalize()

	assert.InDeltaSlice(t, []float64{
		0, 0.5, 1,
		0, 0.5, 1,
		0, 0, 0,
	}, dataset.Features.Data(), 1e-12)
}

func TestDatasetSplit(t *testing.T) {
	features, err := tensor.New(tensor.Shape{1, 4}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	labels, err := tensor.New(tensor.Shape{1, 4}, []float64{0, 1, 0, 1})
	require.NoError(t, err)
	d := newDataset(t, features, labels)

	train, test, err := d.Split(0.75)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, train.Features.Data())
	assert.Equal(t, []float64{0, 1, 0}, train.Labels.Data())
	assert.Equal(t, []float64{4}, test.Features.Data())
	assert.Equal(t, []float64{1}, test.Labels.Data())

	train, test, err = d.Split(0)
	require.NoError(t, err)
	assert.Equal(t, 0, train.Len())
	assert.Equal(t, 4, test.Len())
	_, _, err = train.Tensors()
	assert.ErrorIs(t, err, ErrDataset)

	_, _, err = d.Split(1.5)
	assert.ErrorIs(t, err, ErrDataset)
}

func TestNewDatasetRejectsMismatch(t *testing.T) {
	_, err := NewDataset(tensor.Zeros(2, 3), tensor.Zeros(1, 4))
	assert.ErrorIs(t, err, ErrDataset)
	_, err = NewDataset(tensor.Zeros(2, 3, 1), tensor.Zeros(1, 3))
	assert.ErrorIs(t, err, tensor.ErrLayout)
}
