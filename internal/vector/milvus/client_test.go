package milvus

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/support-agent/backend/internal/vector"
)

var _ vector.Index = (*Client)(nil)

func testResultSet() client.ResultSet {
	return client.ResultSet{
		entity.NewColumnVarChar(idField, []string{"guide.md_0", "guide.md_1"}),
		entity.NewColumnVarChar(textField, []string{"first chunk", "second chunk"}),
		entity.NewColumnVarChar(filenameField, []string{"guide.md", "guide.md"}),
		entity.NewColumnVarChar(filepathField, []string{"guide.md", "guide.md"}),
		entity.NewColumnInt64(chunkIndexField, []int64{0, 1}),
		entity.NewColumnInt64(totalChunksField, []int64{2, 2}),
	}
}

func TestRecordAt(t *testing.T) {
	rs := testResultSet()

	rec, err := recordAt(rs, 1)
	require.NoError(t, err)

	assert.Equal(t, "guide.md_1", rec.ID)
	assert.Equal(t, "second chunk", rec.Text)
	assert.Equal(t, "guide.md", rec.Metadata.Filename)
	assert.Equal(t, "guide.md", rec.Metadata.Filepath)
	assert.Equal(t, 1, rec.Metadata.ChunkIndex)
	assert.Equal(t, 2, rec.Metadata.TotalChunks)
	assert.Nil(t, rec.Vector)
}

func TestRecordAt_MissingColumn(t *testing.T) {
	rs := client.ResultSet{
		entity.NewColumnVarChar(idField, []string{"guide.md_0"}),
	}

	_, err := recordAt(rs, 0)
	assert.Error(t, err)
}

func TestColumnAccessors(t *testing.T) {
	rs := testResultSet()

	s, err := columnString(rs, textField, 0)
	require.NoError(t, err)
	assert.Equal(t, "first chunk", s)

	n, err := columnInt64(rs, totalChunksField, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = columnString(rs, "nope", 0)
	assert.Error(t, err)

	_, err = columnInt64(rs, textField, 0)
	assert.Error(t, err, "varchar column must not decode as int64")

	// Row count comes from a column, never from the set itself.
	assert.Equal(t, 2, rs.GetColumn(idField).Len())
}
