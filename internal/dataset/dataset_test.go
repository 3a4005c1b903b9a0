package dataset_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/coordinfo/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	t.Run("keeps every column and parses coordinates", func(t *testing.T) {
		input := "id,latitude , LONGITUDE,price\n1,45.5,-73.5,100\n2, 48.85 ,2.35,200\n"

		table, err := dataset.Read(strings.NewReader(input), ',')

		require.NoError(t, err)
		assert.Equal(t, []string{"id", "latitude ", " LONGITUDE", "price"}, table.Columns)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, 0, table.Rows[0].Index)
		assert.Equal(t, []string{"1", "45.5", "-73.5", "100"}, table.Rows[0].Values)
		assert.InDelta(t, 45.5, table.Rows[0].Coords.Latitude, 1e-9)
		assert.InDelta(t, -73.5, table.Rows[0].Coords.Longitude, 1e-9)
		assert.Equal(t, 1, table.Rows[1].Index)
		assert.InDelta(t, 48.85, table.Rows[1].Coords.Latitude, 1e-9)
		assert.NoError(t, table.Rows[1].CoordsErr)
	})

	t.Run("unparsable coordinates are kept on the row", func(t *testing.T) {
		input := "Latitude,Longitude\nNaN?,2\n1\n"

		table, err := dataset.Read(strings.NewReader(input), ',')

		require.NoError(t, err)
		require.Len(t, table.Rows, 2)
		require.ErrorContains(t, table.Rows[0].CoordsErr, "invalid latitude")
		require.ErrorContains(t, table.Rows[1].CoordsErr, "invalid longitude")
	})

	t.Run("short rows are padded to the header width", func(t *testing.T) {
		input := "Latitude,Longitude,note,price\n1,0.5\n2,0.5,x\n"

		table, err := dataset.Read(strings.NewReader(input), ',')

		require.NoError(t, err)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, []string{"1", "0.5", "", ""}, table.Rows[0].Values)
		assert.Equal(t, []string{"2", "0.5", "x", ""}, table.Rows[1].Values)
		require.NoError(t, table.Rows[0].CoordsErr)
		assert.InDelta(t, 1, table.Rows[0].Coords.Latitude, 1e-9)
	})

	t.Run("row wider than the header", func(t *testing.T) {
		_, err := dataset.Read(strings.NewReader("Latitude,Longitude\n1,2\n1,2,3\n"), ',')

		require.ErrorIs(t, err, dataset.ErrTooManyFields)
		assert.Contains(t, err.Error(), "row 1 has 3 fields, header has 2")
	})

	t.Run("leading byte order mark", func(t *testing.T) {
		input := "\ufeffLatitude,Longitude\n45.5,-73.5\n"

		table, err := dataset.Read(strings.NewReader(input), ',')

		require.NoError(t, err)
		assert.Equal(t, []string{"Latitude", "Longitude"}, table.Columns)
		require.Len(t, table.Rows, 1)
		assert.InDelta(t, 45.5, table.Rows[0].Coords.Latitude, 1e-9)
	})

	t.Run("custom delimiter", func(t *testing.T) {
		table, err := dataset.Read(strings.NewReader("Latitude;Longitude\n1.5;2.5\n"), ';')

		require.NoError(t, err)
		require.Len(t, table.Rows, 1)
		assert.InDelta(t, 2.5, table.Rows[0].Coords.Longitude, 1e-9)
	})

	t.Run("missing latitude column", func(t *testing.T) {
		_, err := dataset.Read(strings.NewReader("lat,Longitude\n1,2\n"), ',')

		require.ErrorIs(t, err, dataset.ErrMissingColumn)
		assert.Contains(t, err.Error(), "Latitude")
	})

	t.Run("missing longitude column", func(t *testing.T) {
		_, err := dataset.Read(strings.NewReader("Latitude,lng\n1,2\n"), ',')

		require.ErrorIs(t, err, dataset.ErrMissingColumn)
		assert.Contains(t, err.Error(), "Longitude")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := dataset.Read(strings.NewReader(""), ',')

		require.ErrorContains(t, err, "read header")
	})
}

func TestReadFile(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "all_data.csv")
	filet.File(t, path, "Latitude,Longitude,name\n10,20,a\n")

	table, err := dataset.ReadFile(path, ',')

	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "a", table.Rows[0].Values[2])

	_, err = dataset.ReadFile(filepath.Join(dir, "missing.csv"), ',')
	require.ErrorContains(t, err, "failed to open input file")
}

func TestAppendFile(t *testing.T) {
	header := []string{"Latitude", "Longitude", "country"}

	t.Run("header written once across appends", func(t *testing.T) {
		defer filet.CleanUp(t)
		path := filepath.Join(filet.TmpDir(t, ""), "out.csv")
		sink := dataset.NewAppendFile(path, ',')

		require.False(t, filet.Exists(t, path))
		require.NoError(t, sink.Append(header, [][]string{{"1", "2", "X"}}))
		require.NoError(t, sink.Append(header, [][]string{{"3", "4", ""}}))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Latitude,Longitude,country\n1,2,X\n3,4,\n", string(content))
	})

	t.Run("no header when the file already exists", func(t *testing.T) {
		defer filet.CleanUp(t)
		path := filepath.Join(filet.TmpDir(t, ""), "out.csv")
		filet.File(t, path, "Latitude,Longitude,country\n0,0,Y\n")
		sink := dataset.NewAppendFile(path, ',')

		require.NoError(t, sink.Append(header, [][]string{{"1", "2", "X"}}))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Latitude,Longitude,country\n0,0,Y\n1,2,X\n", string(content))
	})

	t.Run("cells with delimiters are quoted", func(t *testing.T) {
		defer filet.CleanUp(t)
		path := filepath.Join(filet.TmpDir(t, ""), "out.csv")
		sink := dataset.NewAppendFile(path, ',')

		require.NoError(t, sink.Append([]string{"name"}, [][]string{{"Paris, France"}}))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "name\n\"Paris, France\"\n", string(content))
	})

	t.Run("unwritable location", func(t *testing.T) {
		defer filet.CleanUp(t)
		path := filepath.Join(filet.TmpDir(t, ""), "missing-dir", "out.csv")
		sink := dataset.NewAppendFile(path, ',')

		err := sink.Append(header, [][]string{{"1", "2", "X"}})

		require.ErrorContains(t, err, "failed to open output file")
		assert.Equal(t, path, sink.Path())
	})
}
