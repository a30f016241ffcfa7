package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandTree(t *testing.T) {
	params := Params{"year": 2024}
	tree := NewBandTree(RootBandName, params)

	root := tree.Band(tree.Root())
	assert.Equal(t, RootBandName, root.Name)
	assert.Equal(t, NoBand, root.Parent)
	assert.Equal(t, OrientationHorizontal, root.Orientation)
	assert.Equal(t, Row{"year": 2024}, root.Data)

	params["year"] = 1999
	assert.Equal(t, 2024, tree.Band(tree.Root()).Data["year"], "root data must not alias params")

	t.Run("nil row is an empty placeholder", func(t *testing.T) {
		id := tree.Add("Empty", OrientationVertical, tree.Root(), nil)

		b := tree.Band(id)
		assert.Equal(t, DataEmpty, b.State)
		assert.NotNil(t, b.Data)
		assert.Empty(t, b.Data)
		assert.True(t, tree.IsEmpty(id))
	})

	t.Run("empty row is populated", func(t *testing.T) {
		id := tree.Add("Blank", OrientationVertical, tree.Root(), Row{})

		assert.Equal(t, DataPopulated, tree.Band(id).State)
		assert.False(t, tree.IsEmpty(id))
	})

	t.Run("no band is never empty", func(t *testing.T) {
		assert.False(t, tree.IsEmpty(NoBand))
	})
}

func TestBandTree_Walk(t *testing.T) {
	tree := NewBandTree(RootBandName, nil)
	a := tree.Add("A", OrientationHorizontal, tree.Root(), Row{"n": 1})
	b := tree.Add("B", OrientationHorizontal, tree.Root(), Row{"n": 2})
	a1 := tree.Add("A1", OrientationVertical, a, Row{"n": 11})
	tree.AppendChildren(tree.Root(), a, b)
	tree.AppendChildren(a, a1)
	tree.AppendChildren(b)

	assert.Equal(t, []BandID{a, b}, tree.Children(tree.Root()))
	assert.Empty(t, tree.Children(b))
	assert.Equal(t, 4, tree.Len())

	var visited []string
	var depths []int
	err := tree.Walk(tree.Root(), func(band BandData, depth int) error {
		visited = append(visited, band.Name)
		depths = append(depths, depth)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{RootBandName, "A", "A1", "B"}, visited)
	assert.Equal(t, []int{0, 1, 2, 1}, depths)

	stop := errors.New("stop")
	err = tree.Walk(tree.Root(), func(band BandData, _ int) error {
		if band.Name == "A1" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}

func TestParseOrientation(t *testing.T) {
	tests := []struct {
		in   string
		want Orientation
	}{
		{"vertical", OrientationVertical},
		{" Horizontal ", OrientationHorizontal},
		{"CROSS", OrientationCross},
		{"", OrientationHorizontal},
	}
	for _, tt := range tests {
		got, err := ParseOrientation(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseOrientation("diagonal")
	assert.Error(t, err)
}

func TestRowHelpers(t *testing.T) {
	t.Run("clone", func(t *testing.T) {
		var nilRow Row
		assert.Nil(t, nilRow.Clone())

		r := Row{"a": 1}
		c := r.Clone()
		c["a"] = 2
		assert.Equal(t, 1, r["a"])
	})

	t.Run("merge leaves receiver untouched", func(t *testing.T) {
		p := Params{"a": 1}
		m := p.Merge(map[string]any{"a": 2, "b": 3})

		assert.Equal(t, Params{"a": 1}, p)
		assert.Equal(t, Params{"a": 2, "b": 3}, m)
	})

	t.Run("scalars", func(t *testing.T) {
		assert.True(t, IsScalar(nil))
		assert.True(t, IsScalar("x"))
		assert.True(t, IsScalar([]byte("x")))
		assert.True(t, IsScalar(3.5))
		assert.False(t, IsScalar([]Row{}))
		assert.False(t, IsScalar([]int{1}))
		assert.False(t, IsScalar(map[string]any{}))
	})
}

func TestErrors(t *testing.T) {
	cause := errors.New("db down")
	dle := &DataLoadingError{Band: "Orders", Query: "orders", Err: cause}
	assert.ErrorIs(t, dle, cause)
	assert.Equal(t, "an error occurred while loading data for band [Orders] and query [orders]: db down", dle.Error())

	rie := &ReportingInterruptedError{Band: "Orders", Cause: cause}
	assert.ErrorIs(t, rie, ErrReportingInterrupted)
	assert.ErrorIs(t, rie, cause)

	verr := NewValidationError("q", "parameter %q is not set", "x")
	assert.Equal(t, `validation failed for query [q]: parameter "x" is not set`, verr.Error())
}
