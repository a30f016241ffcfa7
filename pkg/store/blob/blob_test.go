package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(*params.Bucket, *params.Key)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func TestOpener_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1]`), 0o644))

	rc, err := NewOpener().Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(data))
}

func TestOpener_MissingFile(t *testing.T) {
	_, err := NewOpener().Open(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpener_S3(t *testing.T) {
	client := new(mockS3)
	client.On("GetObject", "reports", "2024/sales.csv").
		Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("a,b"))}, nil)

	rc, err := NewOpenerWithClient(client).Open(context.Background(), "s3://reports/2024/sales.csv")
	require.NoError(t, err)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b", string(data))
	client.AssertExpectations(t)
}

func TestOpener_S3Error(t *testing.T) {
	client := new(mockS3)
	boom := errors.New("access denied")
	client.On("GetObject", "reports", "x.json").Return(nil, boom)

	_, err := NewOpenerWithClient(client).Open(context.Background(), "s3://reports/x.json")
	assert.ErrorIs(t, err, boom)
}

func TestParseS3Location(t *testing.T) {
	bucket, key, err := ParseS3Location("s3://bucket/a/b.json")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b.json", key)

	_, _, err = ParseS3Location("s3://bucket")
	assert.Error(t, err)
}
