package configparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	props, err := Parse([]byte("inspectit:\n  service-name: test-name"))

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"inspectit.service-name": "test-name"}, props)
}

func TestParseJSON(t *testing.T) {
	props, err := Parse([]byte(`{"inspectit": {"service-name": "test-name"}}`))

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"inspectit.service-name": "test-name"}, props)
}

func TestParseEmpty(t *testing.T) {
	for _, body := range []string{"", "   \n\t"} {
		props, err := Parse([]byte(body))

		require.NoError(t, err)
		assert.NotNil(t, props)
		assert.Empty(t, props)
	}
}

func TestParseScalarsAndLists(t *testing.T) {
	body := `
inspectit:
  tracing:
    enabled: true
    sample-probability: 0.25
  metrics:
    frequency: 15
  exporters: [zipkin, jaeger]
  empty:
`
	props, err := Parse([]byte(body))

	require.NoError(t, err)
	assert.Equal(t, "true", props["inspectit.tracing.enabled"])
	assert.Equal(t, "0.25", props["inspectit.tracing.sample-probability"])
	assert.Equal(t, "15", props["inspectit.metrics.frequency"])
	assert.Equal(t, "zipkin", props["inspectit.exporters[0]"])
	assert.Equal(t, "jaeger", props["inspectit.exporters[1]"])
	assert.Equal(t, "", props["inspectit.empty"])
}

func TestParseJSONNumbersAndNestedLists(t *testing.T) {
	props, err := Parse([]byte(`  {"a": {"n": 1024, "list": [{"x": "y"}]}}`))

	require.NoError(t, err)
	assert.Equal(t, "1024", props["a.n"])
	assert.Equal(t, "y", props["a.list[0].x"])
}

func TestParseLargeNumbersAgreeAcrossFormats(t *testing.T) {
	fromYAML, err := Parse([]byte("id: 12345678901234567890\nsmall: 9007199254740993\nratio: 0.25\nbig: 1e3"))
	require.NoError(t, err)
	fromJSON, err := Parse([]byte(`{"id": 12345678901234567890, "small": 9007199254740993, "ratio": 0.25, "big": 1e3}`))
	require.NoError(t, err)

	assert.Equal(t, "12345678901234567890", fromJSON["id"])
	assert.Equal(t, "9007199254740993", fromJSON["small"])
	assert.Equal(t, "1000", fromJSON["big"])
	assert.Equal(t, fromYAML, fromJSON)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		format Format
	}{
		{name: "broken json", body: `{"inspectit": `, format: JSON},
		{name: "json trailing data", body: `{"a": 1} x`, format: JSON},
		{name: "broken yaml", body: "a: [1, 2", format: YAML},
		{name: "yaml scalar document", body: "just text", format: YAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := Parse([]byte(tt.body))

			assert.Nil(t, props)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.format, parseErr.Format)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, JSON, DetectFormat([]byte("\n  {}")))
	assert.Equal(t, YAML, DetectFormat([]byte("a: {}")))
	assert.Equal(t, YAML, DetectFormat(nil))
	assert.Equal(t, "json", JSON.String())
	assert.Equal(t, "yaml", YAML.String())
}
