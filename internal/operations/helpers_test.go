package operations

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"wdipanel/internal/config"
	"wdipanel/internal/dataprocessing"
	"wdipanel/pkg/contracts/domain"
)

var (
	gdpSpec  = domain.IndicatorSpec{Code: "NY.GDP.PCAP.KD", Name: "GDP_per_capita"}
	lifeSpec = domain.IndicatorSpec{Code: "SP.DYN.LE00.IN", Name: "life_expectancy"}
	popSpec  = domain.IndicatorSpec{Code: "SP.POP.TOTL", Name: "population"}
)

// rawTable builds a raw fetch result with country, date and the indicator column
func rawTable(t *testing.T, spec domain.IndicatorSpec, rows ...[]any) *dataprocessing.Table {
	t.Helper()
	tbl := dataprocessing.NewTable(dataprocessing.RawLocationColumn, dataprocessing.RawPeriodColumn, spec.Name)
	for _, r := range rows {
		vals := make([]dataprocessing.Value, len(r))
		for i, c := range r {
			switch v := c.(type) {
			case nil:
				vals[i] = dataprocessing.Null()
			case float64:
				vals[i] = dataprocessing.Number(v)
			case string:
				vals[i] = dataprocessing.Text(v)
			default:
				t.Fatalf("unsupported cell %T", c)
			}
		}
		require.NoError(t, tbl.AppendRow(vals...))
	}
	return tbl
}

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.ResolvePaths(config.PathsConfig{
		BaseDir:      t.TempDir(),
		DataDir:      "data",
		ProcessedDir: "data/processed",
		LogsDir:      "logs",
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

type staticLister []domain.Location

func (s staticLister) ListLocations(context.Context) []domain.Location { return s }

type memoryRecorder struct {
	mu      sync.Mutex
	records []domain.RunSummary
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, s domain.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, s)
	return m.err
}

// fixedFetcher serves a canned table per indicator code; missing codes yield an empty result
func fixedFetcher(tables map[string]*dataprocessing.Table) dataprocessing.Fetcher {
	return dataprocessing.FetcherFunc(func(_ context.Context, spec domain.IndicatorSpec, _ dataprocessing.FetchRequest) (*dataprocessing.Table, error) {
		return tables[spec.Code], nil
	})
}
