package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-pdf-service/pkg/errors"
)

type fakeS3 struct {
	err   error
	input *s3.PutObjectInput
	body  []byte
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func writeOutput(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"local", Config{Kind: KindLocal, Dir: "/out"}, false},
		{"local without dir", Config{Kind: KindLocal}, true},
		{"s3", Config{Kind: KindS3, Bucket: "statements"}, false},
		{"s3 without bucket", Config{Kind: KindS3}, true},
		{"unknown", Config{Kind: "ftp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	sink, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.Nil(t, sink)

	sink, err = New(context.Background(), Config{Kind: KindLocal, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, KindLocal, sink.Name())

	_, err = New(context.Background(), Config{Kind: KindS3})
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "Statement_1.pdf", ObjectKey("", "/tmp/x/Statement_1.pdf"))
	assert.Equal(t, "2025/03/Statement_1.pdf", ObjectKey("/2025/03/", "Statement_1.pdf"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.PDF"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ContentType("a.xlsx"))
	assert.Equal(t, "application/octet-stream", ContentType("a.bin"))
}

func TestLocalSink_PublishOntoItself(t *testing.T) {
	src := writeOutput(t, "statement.pdf", "%PDF-1.3 same file")

	loc, err := NewLocalSink(filepath.Dir(src)).Publish(context.Background(), src, filepath.Base(src))
	require.NoError(t, err)
	assert.Equal(t, src, loc)

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 same file", string(data))

	entries, err := os.ReadDir(filepath.Dir(src))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalSink_Publish(t *testing.T) {
	src := writeOutput(t, "statement.pdf", "%PDF-1.3 test")
	dir := filepath.Join(t.TempDir(), "published")

	loc, err := NewLocalSink(dir).Publish(context.Background(), src, "2025/statement.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2025", "statement.pdf"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 test", string(data))
}

func TestLocalSink_MissingSource(t *testing.T) {
	_, err := NewLocalSink(t.TempDir()).Publish(context.Background(), "/no/such/file.pdf", "file.pdf")
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeFileNotFound, appErr.Code)
}

func TestS3Sink_Publish(t *testing.T) {
	src := writeOutput(t, "statement.pdf", "%PDF-1.3 test")
	client := &fakeS3{}

	loc, err := NewS3Sink(client, "statements", "branch-001").Publish(context.Background(), src, "Statement_42_20250301.pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3://statements/branch-001/Statement_42_20250301.pdf", loc)

	require.NotNil(t, client.input)
	assert.Equal(t, "statements", aws.ToString(client.input.Bucket))
	assert.Equal(t, "branch-001/Statement_42_20250301.pdf", aws.ToString(client.input.Key))
	assert.Equal(t, "application/pdf", aws.ToString(client.input.ContentType))
	assert.Equal(t, "%PDF-1.3 test", string(client.body))
}

func TestS3Sink_UploadError(t *testing.T) {
	src := writeOutput(t, "statement.pdf", "%PDF")
	client := &fakeS3{err: fmt.Errorf("AccessDenied")}

	_, err := NewS3Sink(client, "statements", "").Publish(context.Background(), src, "statement.pdf")
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryStorage, appErr.Category)
	assert.Equal(t, errors.CodeUploadFailed, appErr.Code)
	assert.Contains(t, err.Error(), "AccessDenied")
}
