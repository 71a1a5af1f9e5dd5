package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []Result{
	{Index: "B-Tree", Distribution: "uniform", DataSize: 1000, Operation: "search", Value: 120.5},
	{Index: "RMI", Distribution: "uniform", DataSize: 1000, Operation: "search", Value: 80},
	{Index: "RMI", Distribution: "zipf", DataSize: 1000, Operation: "memory", Value: 4096},
}

func TestSQLiteSinkWriteQuery(t *testing.T) {
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Write(sample))
	require.NoError(t, sink.Write(nil))

	all, err := sink.Query(Filter{})
	require.NoError(t, err)
	assert.Equal(t, sample, all)

	search, err := sink.Query(Filter{Operation: "search", Distribution: "uniform", DataSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, sample[:2], search)

	require.NoError(t, sink.Truncate())
	all, err = sink.Query(Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCSVSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.csv")

	sink, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(sample[:1]))
	require.NoError(t, sink.Close())

	// 再次打开时不重复写表头
	sink, err = NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(sample[1:]))
	require.NoError(t, sink.Close())

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, sample, got)
}

func TestMultiSink(t *testing.T) {
	a, b := &MemorySink{}, &MemorySink{}
	m := MultiSink{a, b}
	require.NoError(t, m.Write(sample))
	require.NoError(t, m.Close())
	assert.Equal(t, sample, a.Results)
	assert.Equal(t, sample, b.Results)
}
