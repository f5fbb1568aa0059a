package deadletter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/jobqueue"
)

// ObjectPutter is the subset of the S3 client the archiver needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver drains the dead-letter list into JSON-lines objects
type Archiver struct {
	store     jobqueue.Store
	list      string
	uploader  ObjectPutter
	bucket    string
	batchSize int
	now       func() time.Time
}

func NewArchiver(store jobqueue.Store, list string, uploader ObjectPutter, bucket string, batchSize int) *Archiver {
	if list == "" {
		list = jobqueue.FailedKey
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Archiver{
		store:     store,
		list:      list,
		uploader:  uploader,
		bucket:    bucket,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// ArchiveOnce uploads up to one batch of dead-letter entries. On upload failure the
// entries are returned to the head of the list in their original order.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int, error) {
	entries, err := a.drain(ctx)
	if err != nil {
		a.restore(entries)
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	key := ObjectKey(a.now(), uuid.NewString())
	body := encodeLines(entries)

	_, err = a.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/x-ndjson"),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]string{
			"entries":       fmt.Sprintf("%d", len(entries)),
			"upload-source": "feedbackbot-deadletter",
		},
	})
	if err != nil {
		a.restore(entries)
		return 0, fmt.Errorf("upload %s: %w", key, err)
	}

	log.Infof("[DeadLetter] Archived %d entries to s3://%s/%s", len(entries), a.bucket, key)
	return len(entries), nil
}

func (a *Archiver) drain(ctx context.Context) ([][]byte, error) {
	var entries [][]byte
	for len(entries) < a.batchSize {
		item, ok, err := a.store.TryPop(ctx, a.list)
		if err != nil {
			return entries, fmt.Errorf("drain %s: %w", a.list, err)
		}
		if !ok {
			break
		}
		entries = append(entries, item)
	}
	return entries, nil
}

// restore pushes entries back to the head, last first, so the list order is unchanged
func (a *Archiver) restore(entries [][]byte) {
	if len(entries) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := len(entries) - 1; i >= 0; i-- {
		if err := a.store.PushHead(ctx, a.list, entries[i]); err != nil {
			log.Errorf("[DeadLetter] Lost %d entries while restoring %s: %v", i+1, a.list, err)
			return
		}
	}
}

func encodeLines(entries [][]byte) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		if !json.Valid(e) || json.Compact(&buf, e) != nil {
			// keep the line parseable
			quoted, _ := json.Marshal(string(e))
			buf.Write(quoted)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
