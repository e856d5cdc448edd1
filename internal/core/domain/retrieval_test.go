package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseStrategy tests parsing of user supplied strategy names
func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input    string
		expected Strategy
		wantErr  bool
	}{
		{"", StrategySimilarity, false},
		{"similarity", StrategySimilarity, false},
		{"Compression", StrategyCompression, false},
		{" hybrid ", StrategyHybrid, false},
		{"mmr", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s, err := ParseStrategy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s)
		})
	}
}

// TestStrategy_Properties tests strategy helpers
func TestStrategy_Properties(t *testing.T) {
	for _, s := range AllStrategies() {
		assert.True(t, s.IsValid())
		assert.NotEqual(t, "Unknown", s.Description())
	}
	assert.True(t, StrategyCompression.RequiresLLM())
	assert.False(t, StrategyHybrid.RequiresLLM())
	assert.False(t, Strategy("x").IsValid())
}

// TestRetrievalResult_Empty tests nil-safe length helpers
func TestRetrievalResult_Empty(t *testing.T) {
	var nilResult *RetrievalResult
	assert.True(t, nilResult.IsEmpty())
	assert.Equal(t, 0, nilResult.Len())

	r := &RetrievalResult{Passages: []ScoredChunk{{Score: 1}}}
	assert.False(t, r.IsEmpty())
	assert.Equal(t, 1, r.Len())
}

// TestMetadataFilter_Matches tests key/value filtering
func TestMetadataFilter_Matches(t *testing.T) {
	metadata := map[string]any{"format": "pdf", "page": 3}

	assert.True(t, MetadataFilter(nil).Matches(metadata))
	assert.True(t, MetadataFilter{"format": "pdf"}.Matches(metadata))
	assert.True(t, MetadataFilter{"format": "pdf", "page": "3"}.Matches(metadata))
	assert.False(t, MetadataFilter{"format": "csv"}.Matches(metadata))
	assert.False(t, MetadataFilter{"row": "1"}.Matches(metadata))
}

func TestMetadataFilter_ScalarsOnly(t *testing.T) {
	metadata := map[string]any{
		"format":  FormatPDF,
		"scanned": true,
		"score":   0.5,
		"tags":    []any{"a", "b"},
		"author":  map[string]any{"name": "Ada"},
		"missing": nil,
	}

	tests := []struct {
		name   string
		filter MetadataFilter
		want   bool
	}{
		{"named string type", MetadataFilter{"format": "pdf"}, true},
		{"bool", MetadataFilter{"scanned": "true"}, true},
		{"float", MetadataFilter{"score": "0.5"}, true},
		{"list never matches", MetadataFilter{"tags": "[a b]"}, false},
		{"list json form never matches", MetadataFilter{"tags": `["a","b"]`}, false},
		{"object never matches", MetadataFilter{"author": "map[name:Ada]"}, false},
		{"nil never matches", MetadataFilter{"missing": "<nil>"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(metadata))
		})
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "short", text: "hello", want: "hello"},
		{name: "whitespace collapsed", text: "  a\n\nb\tc ", want: "a b c"},
		{name: "exact length", text: strings.Repeat("x", PreviewLength), want: strings.Repeat("x", PreviewLength)},
		{name: "truncated", text: strings.Repeat("é", PreviewLength+5), want: strings.Repeat("é", PreviewLength) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.text))
		})
	}
}
