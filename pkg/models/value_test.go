package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnify(t *testing.T) {
	tests := []struct {
		a, b, want Kind
	}{
		{KindNull, KindInt, KindInt},
		{KindFloat, KindNull, KindFloat},
		{KindInt, KindInt, KindInt},
		{KindInt, KindFloat, KindFloat},
		{KindDate, KindTimestamp, KindTimestamp},
		{KindBool, KindInt, KindString},
		{KindDate, KindFloat, KindString},
		{KindString, KindNull, KindString},
		{KindNull, KindNull, KindNull},
	}
	for _, tt := range tests {
		t.Run(tt.a.String()+"+"+tt.b.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Unify(tt.a, tt.b))
			assert.Equal(t, tt.want, Unify(tt.b, tt.a))
		})
	}
}

func TestValuePayloads(t *testing.T) {
	assert.True(t, Null().IsNull())
	assert.True(t, Bool(true).AsBool())
	assert.False(t, Bool(false).AsBool())
	assert.Equal(t, int64(-42), Int(-42).AsInt())
	assert.Equal(t, 10.5, Float(10.5).AsFloat())
	assert.Equal(t, 3.0, Int(3).AsFloat())
	assert.Equal(t, "abc", String("abc").AsString())

	ts := time.Date(2024, 1, 15, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, ts, Timestamp(ts, "").AsTime())
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Date(ts, "").AsTime())
}

func TestTemporalValuesOutsideNanosecondRange(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
	}{
		{"end of calendar sentinel", time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"before 1677", time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"year one", time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.at, Date(tt.at, "").AsTime())

			at := tt.at.Add(23*time.Hour + 59*time.Minute + 999999999)
			assert.Equal(t, at, Timestamp(at, "").AsTime())
		})
	}

	early := Timestamp(time.Date(1600, 1, 1, 0, 0, 0, 5, time.UTC), "")
	late := Timestamp(time.Date(1600, 1, 1, 0, 0, 0, 6, time.UTC), "")
	assert.False(t, early.Equal(late), "sub-second part takes part in equality")
}

func TestValueText(t *testing.T) {
	assert.Equal(t, "TRUE", Bool(true).Text())
	assert.Equal(t, "FALSE", Bool(false).Text())
	assert.Equal(t, "7", Int(7).Text())
	assert.Equal(t, "10.5", Float(10.5).Text())
	assert.Equal(t, "", Null().Text())

	d := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "01-15-24", Date(d, "01-15-24").Text())
	assert.Equal(t, "2024-01-15", Date(d, "").Text())
}

func TestValueConvert(t *testing.T) {
	assert.Equal(t, Float(2), Int(2).Convert(KindFloat))
	assert.Equal(t, String("TRUE"), Bool(true).Convert(KindString))
	assert.True(t, Null().Convert(KindString).IsNull())

	d := Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-03-01")
	ts := d.Convert(KindTimestamp)
	require.Equal(t, KindTimestamp, ts.Kind())
	assert.Equal(t, d.AsTime(), ts.AsTime())
	assert.Equal(t, String("2024-03-01"), d.Convert(KindString))
}

func TestParseKind(t *testing.T) {
	for k := KindNull; k <= KindString; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("decimal")
	assert.False(t, ok)
}

func TestRowBatchRelease(t *testing.T) {
	released := 0
	b := NewRowBatch(2, []Row{{Int(1)}, {Int(2)}}, func(*RowBatch) { released++ })
	assert.Equal(t, 2, b.Len())

	b.Release()
	b.Release()
	assert.Equal(t, 1, released)
	assert.Nil(t, b.Rows)
	assert.Equal(t, 0, b.Len())
}

func TestTableSliceAndEqual(t *testing.T) {
	tbl := &Table{
		NumRows: 3,
		Columns: []Column{
			{Name: "id", Kind: KindInt, Values: []Value{Int(1), Int(2), Int(3)}},
			{Name: "name", Kind: KindString, Values: []Value{String("a"), Null(), String("c")}},
		},
	}

	s := tbl.Slice(1, 3)
	assert.Equal(t, 2, s.NumRows)
	assert.Equal(t, []string{"id", "name"}, s.Names())
	assert.Equal(t, Int(2), s.Columns[0].Values[0])

	assert.Equal(t, Row{Int(3), String("c")}, tbl.Row(2))
	assert.True(t, tbl.Equal(tbl))

	other := &Table{NumRows: 3, Columns: append([]Column(nil), tbl.Columns...)}
	other.Columns[1] = Column{Name: "name", Kind: KindString, Values: []Value{String("a"), Null(), String("x")}}
	assert.False(t, tbl.Equal(other))
}
