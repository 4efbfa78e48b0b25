package meanstoanend

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeseriesMean(t *testing.T) {
	var ts Timeseries
	ts.Insert(12345, 101)
	ts.Insert(12346, 102)
	ts.Insert(12347, 100)
	ts.Insert(40960, 5)

	require.EqualValues(t, 101, ts.Mean(12288, 16384))
}

func TestTimeseriesMeanEmptyRange(t *testing.T) {
	var ts Timeseries
	ts.Insert(1, 100)
	require.EqualValues(t, 0, ts.Mean(100, 200))
}

func TestTimeseriesMeanInvertedRange(t *testing.T) {
	var ts Timeseries
	ts.Insert(1, 100)
	require.EqualValues(t, 0, ts.Mean(200, 100))
}

func TestTimeseriesMeanNoSamples(t *testing.T) {
	var ts Timeseries
	require.EqualValues(t, 0, ts.Mean(0, 100))
}
