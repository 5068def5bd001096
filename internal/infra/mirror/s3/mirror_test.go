package s3

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/docleaks/pkg/common"
	"github.com/ahrav/docleaks/pkg/common/logger"
)

// fakeS3 serves a fixed set of objects, two keys per page.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]string
	failures map[string]int
	gets     map[string]int
	listErr  error
}

func (f *fakeS3) sortedKeys() []string {
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	keys := f.sortedKeys()
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}

	end := min(start+2, len(keys))
	out := &awss3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(in.Key)
	f.gets[key]++
	if f.failures[key] > 0 {
		f.failures[key]--
		return nil, errors.New("connection reset")
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func newFake(objects map[string]string) *fakeS3 {
	return &fakeS3{objects: objects, failures: map[string]int{}, gets: map[string]int{}}
}

func newTestMirror(client API, fs afero.Fs) *Mirror {
	cfg := Config{
		Bucket:      "corpus",
		Root:        "/corpus",
		Concurrency: 3,
		Retry:       common.RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxElapsedTime: time.Second},
	}
	return NewMirror(client, fs, cfg, nil, logger.Noop(), noop.NewTracerProvider().Tracer("test"))
}

func TestMirror_ListKeysPaginates(t *testing.T) {
	fake := newFake(map[string]string{"a": "1", "b": "2", "c": "3", "d/": "", "d/e": "5"})

	keys, err := newTestMirror(fake, afero.NewMemMapFs()).ListKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d/", "d/e"}, keys)
}

func TestMirror_Sync(t *testing.T) {
	fake := newFake(map[string]string{
		"docs/":             "",
		"docs/a.txt":        "contact a@b.co",
		"docs/nested/b.pdf": "%PDF",
		"existing.txt":      "remote copy",
		"flaky.txt":         "eventually",
		"../escape.txt":     "nope",
	})
	fake.failures["flaky.txt"] = 1

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/corpus/existing.txt", []byte("local copy"), 0o644))

	res, err := newTestMirror(fake, fs).Sync(context.Background())
	require.NoError(t, err)

	sort.Strings(res.Downloaded)
	assert.Equal(t, []string{"/corpus/docs/a.txt", "/corpus/docs/nested/b.pdf", "/corpus/flaky.txt"}, res.Downloaded)
	assert.Equal(t, []string{"/corpus/existing.txt"}, res.Existing)
	assert.Equal(t, []string{"../escape.txt"}, res.Failed)

	got, err := afero.ReadFile(fs, "/corpus/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "contact a@b.co", string(got))

	local, err := afero.ReadFile(fs, "/corpus/existing.txt")
	require.NoError(t, err)
	assert.Equal(t, "local copy", string(local), "existing files are not overwritten")

	assert.Equal(t, 2, fake.gets["flaky.txt"])
	assert.Zero(t, fake.gets["existing.txt"])
	assert.Zero(t, fake.gets["docs/"])
}

func TestMirror_MissingKeyIsNotRetried(t *testing.T) {
	fake := newFake(map[string]string{"gone.txt": "x"})
	client := &vanishingS3{fakeS3: fake}

	res, err := newTestMirror(client, afero.NewMemMapFs()).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gone.txt"}, res.Failed)
	assert.Equal(t, 1, client.gets)
}

// vanishingS3 lists objects but reports every one as missing on download.
type vanishingS3 struct {
	*fakeS3
	gets int
}

func (v *vanishingS3) GetObject(context.Context, *awss3.GetObjectInput, ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	v.gets++
	return nil, &types.NoSuchKey{}
}

func TestMirror_ListFailure(t *testing.T) {
	fake := newFake(nil)
	fake.listErr = errors.New("access denied")

	_, err := newTestMirror(fake, afero.NewMemMapFs()).Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to list files")
}
