package deadletter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/jobqueue"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/webhook"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	inputs  []*s3.PutObjectInput
	err     error
}

func (u *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return nil, u.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[aws.ToString(in.Key)] = body
	u.inputs = append(u.inputs, in)
	return &s3.PutObjectOutput{}, nil
}

func seedFailed(t *testing.T, q *jobqueue.Queue, ids ...string) {
	t.Helper()
	for _, id := range ids {
		ev := webhook.NewTextEvent(id, "555", "hi", 1700000000, nil)
		require.NoError(t, q.MarkFailed(context.Background(), ev, "boom"))
	}
}

func readLines(t *testing.T, data []byte) []string {
	t.Helper()
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestArchiveOnce_UploadsBatch(t *testing.T) {
	store := jobqueue.NewMemoryStore()
	q := jobqueue.NewQueue(store, jobqueue.DefaultQueueConfig())
	seedFailed(t, q, "a", "b", "c")

	uploader := &fakeUploader{}
	a := NewArchiver(store, "", uploader, "archive-bucket", 2)
	a.now = func() time.Time { return time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC) }

	n, err := a.ArchiveOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, uploader.inputs, 1)
	in := uploader.inputs[0]
	assert.Equal(t, "archive-bucket", aws.ToString(in.Bucket))
	assert.Regexp(t, `^deadletter/2026/03/07/[0-9a-f-]{36}\.jsonl$`, aws.ToString(in.Key))

	lines := readLines(t, uploader.objects[aws.ToString(in.Key)])
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"messageId":"a"`)
	assert.Contains(t, lines[1], `"messageId":"b"`)

	// remainder stays for the next pass
	assert.Len(t, store.Items(jobqueue.FailedKey), 1)

	n, err = a.ArchiveOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, store.Items(jobqueue.FailedKey))
}

func TestArchiveOnce_Empty(t *testing.T) {
	uploader := &fakeUploader{}
	a := NewArchiver(jobqueue.NewMemoryStore(), "", uploader, "b", 10)

	n, err := a.ArchiveOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, uploader.inputs)
}

func TestArchiveOnce_RestoresOnUploadFailure(t *testing.T) {
	store := jobqueue.NewMemoryStore()
	q := jobqueue.NewQueue(store, jobqueue.DefaultQueueConfig())
	seedFailed(t, q, "a", "b", "c")
	before := store.Items(jobqueue.FailedKey)

	a := NewArchiver(store, "", &fakeUploader{err: errors.New("access denied")}, "b", 2)

	n, err := a.ArchiveOnce(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, before, store.Items(jobqueue.FailedKey))
}

func TestEncodeLines(t *testing.T) {
	out := encodeLines([][]byte{
		[]byte("{\n  \"a\": 1\n}"),
		[]byte("not json"),
	})
	assert.Equal(t, "{\"a\":1}\n\"not json\"\n", string(out))
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2025, 12, 1, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	assert.Equal(t, "deadletter/2025/12/02/id.jsonl", ObjectKey(at, "id"))
}
