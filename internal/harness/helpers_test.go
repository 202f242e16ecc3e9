package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/halodb/internal/ingest"
)

// loadValues decodes a YAML list of expected values.
func loadValues(t *testing.T, src string) ingest.Values {
	t.Helper()
	var out ingest.Values
	require.NoError(t, yaml.Unmarshal([]byte(src), &out))
	return out
}
