package book

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggest/jsonschema-go"
)

func TestParseChapterNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    ChapterNumber
		wantErr bool
	}{
		{in: "1.", want: "1."},
		{in: "1.2.3.", want: "1.2.3."},
		{in: "3.1", want: "3.1."},
		{in: " 2 ", want: "2."},
		{in: "0.1.", want: "0.1."},
		{in: "-1.2.", want: "-1.2."},
		{in: "", wantErr: true},
		{in: "a.b.", wantErr: true},
		{in: "1..2.", wantErr: true},
		{in: "1.-1.", wantErr: true},
		{in: "-2.1.", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChapterNumber(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidChapterNumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare(t *testing.T) {
	nums := []ChapterNumber{"-1.2.", "2.", "1.10.", "0.1.", "1.2.", "-1.1.", "1.", "1.2.1."}
	slices.SortFunc(nums, Compare)
	assert.Equal(t, []ChapterNumber{"0.1.", "1.", "1.2.", "1.2.1.", "1.10.", "2.", "-1.1.", "-1.2."}, nums)
	assert.Equal(t, 0, Compare("3.", "3."))
}

func TestChapterNumberJSON(t *testing.T) {
	var q ChapterQuery
	require.NoError(t, json.Unmarshal([]byte(`{"chapter_number":"4.2"}`), &q))
	assert.Equal(t, ChapterNumber("4.2."), q.ChapterNumber)

	err := json.Unmarshal([]byte(`{"chapter_number":"four"}`), &q)
	assert.Error(t, err)

	raw, err := json.Marshal(ChapterQuery{ChapterNumber: "1.3."})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chapter_number":"1.3."}`, string(raw))
}

func TestChapterNumberSchema(t *testing.T) {
	r := jsonschema.Reflector{}
	schema, err := r.Reflect(ChapterQuery{})
	require.NoError(t, err)
	raw, err := json.Marshal(schema)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, []any{"chapter_number"}, doc["required"])
	assert.Contains(t, string(raw), `^(\\d+\\.)+$`)
}

func TestChapterIndexOrder(t *testing.T) {
	ix := NewChapterIndex()
	for _, n := range []ChapterNumber{"2.", "-1.1.", "1.1.", "0.1.", "1."} {
		assert.False(t, ix.Put(&Chapter{Number: n, Name: string(n)}))
	}
	assert.True(t, ix.Put(&Chapter{Number: "1.", Name: "again"}))
	assert.Equal(t, 5, ix.Len())

	var order []ChapterNumber
	for n := range ix.All() {
		order = append(order, n)
	}
	assert.Equal(t, []ChapterNumber{"0.1.", "1.", "1.1.", "2.", "-1.1."}, order)

	c, ok := ix.Get("1.")
	require.True(t, ok)
	assert.Equal(t, "again", c.Name)
}
