package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func params(budget, perPage, header int) Params {
	return Params{
		BudgetTokens:  budget,
		TokensPerPage: perPage,
		HeaderPages:   header,
	}
}

func TestPlanTwelvePageDocument(t *testing.T) {
	// 12500 tokens * 0.8 margin / 2000 tokens per page = 5-page window,
	// less 2 header pages = 3 body pages per chunk.
	chunks, err := Plan(12, params(12500, 2000, 2))
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	bodies := [][2]int{{2, 5}, {5, 8}, {8, 11}, {11, 12}}
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, 2, chunk.HeaderEnd)
		assert.Equal(t, bodies[i][0], chunk.BodyStart)
		assert.Equal(t, bodies[i][1], chunk.BodyEnd)
	}
}

func TestPlanSingleChunkUnderBudget(t *testing.T) {
	chunks, err := Plan(4, params(12500, 2000, 2))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, Chunk{Index: 0, HeaderEnd: 0, BodyStart: 0, BodyEnd: 4}, chunks[0])
}

func TestPlanExactBudgetFitsWhole(t *testing.T) {
	// 5 pages * 2000 tokens = 10000 = 12500 * 0.8 exactly.
	chunks, err := Plan(5, params(12500, 2000, 2))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 5, chunks[0].BodyEnd)
}

func TestPlanBodyCoverage(t *testing.T) {
	tests := []struct {
		name      string
		pageCount int
		params    Params
	}{
		{"remainder chunk", 12, params(12500, 2000, 2)},
		{"even split", 10, params(12500, 2000, 1)},
		{"no header pages", 9, params(10000, 2000, 0)},
		{"single body page per chunk", 6, params(5000, 2000, 1)},
		{"large document", 250, params(100000, 2000, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Plan(tt.pageCount, tt.params)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			// Bodies must tile [headerPages, pageCount) in order with no
			// gaps or overlap, and every chunk repeats the same header.
			next := tt.params.HeaderPages
			for i, chunk := range chunks {
				assert.Equal(t, i, chunk.Index)
				assert.Equal(t, tt.params.HeaderPages, chunk.HeaderEnd)
				assert.Equal(t, next, chunk.BodyStart)
				assert.Greater(t, chunk.BodyEnd, chunk.BodyStart)
				next = chunk.BodyEnd
			}
			assert.Equal(t, tt.pageCount, next)
		})
	}
}

func TestPlanBudgetTooSmall(t *testing.T) {
	// 5-page window entirely consumed by header pages.
	_, err := Plan(12, params(12500, 2000, 5))
	require.ErrorIs(t, err, ErrBudgetTooSmall)
}

func TestPlanNoPages(t *testing.T) {
	_, err := Plan(0, params(12500, 2000, 2))
	require.Error(t, err)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid", params(12500, 2000, 2), false},
		{"zero budget", params(0, 2000, 2), true},
		{"zero tokens per page", params(12500, 0, 2), true},
		{"negative header pages", params(12500, 2000, -1), true},
		{"header fills window", params(12500, 2000, 5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChunkSelection(t *testing.T) {
	tests := []struct {
		name     string
		chunk    Chunk
		expected []string
	}{
		{"header and body run", Chunk{HeaderEnd: 2, BodyStart: 5, BodyEnd: 8}, []string{"1-2", "6-8"}},
		{"single body page", Chunk{HeaderEnd: 2, BodyStart: 11, BodyEnd: 12}, []string{"1-2", "12"}},
		{"single header page", Chunk{HeaderEnd: 1, BodyStart: 4, BodyEnd: 6}, []string{"1", "5-6"}},
		{"whole document", Chunk{HeaderEnd: 0, BodyStart: 0, BodyEnd: 12}, []string{"1-12"}},
		{"body adjacent to header", Chunk{HeaderEnd: 2, BodyStart: 2, BodyEnd: 5}, []string{"1-2", "3-5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.chunk.Selection())
		})
	}
}

func TestChunkPageCount(t *testing.T) {
	assert.Equal(t, 5, Chunk{HeaderEnd: 2, BodyStart: 5, BodyEnd: 8}.PageCount())
	assert.Equal(t, 12, Chunk{HeaderEnd: 0, BodyStart: 0, BodyEnd: 12}.PageCount())
}
