package block

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Backend stores segment files as objects in an S3 bucket, optionally
// under a key prefix — an alternative to LocalBackend for collections that
// need durable, shared segment storage off the writing host.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Config configures an S3Backend.
type S3Config struct {
	Bucket string
	Region string
	Prefix string
}

// NewS3Backend loads the default AWS credential chain and returns a
// backend bound to cfg.Bucket.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("block: bucket is required for S3 backend")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("block: load aws config: %w", err)
	}
	return &S3Backend{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (b *S3Backend) key(path string) string {
	if b.prefix == "" {
		return path
	}
	return b.prefix + "/" + path
}

func (b *S3Backend) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	return &s3Writer{ctx: ctx, backend: b, key: b.key(path)}, nil
}

func (b *S3Backend) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, notFound("get", path)
		}
		return nil, &Error{Op: "get", Path: path, Err: err}
	}
	return out.Body, nil
}

func (b *S3Backend) OpenReaderAt(ctx context.Context, path string) (ReaderAtCloser, error) {
	if _, err := b.Stat(ctx, path); err != nil {
		return nil, err
	}
	return &s3ReaderAt{ctx: ctx, backend: b, key: b.key(path)}, nil
}

func (b *S3Backend) Stat(ctx context.Context, path string) (Info, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return Info{}, notFound("head", path)
		}
		return Info{}, &Error{Op: "head", Path: path, Err: err}
	}
	return Info{Size: aws.ToInt64(out.ContentLength)}, nil
}

func (b *S3Backend) Remove(ctx context.Context, path string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		return &Error{Op: "delete", Path: path, Err: err}
	}
	return nil
}

func isS3NotFound(err error) bool {
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}

// s3ReaderAt services ReadAt calls with ranged GetObject requests — S3 has
// no native pread, so each call is its own request.
type s3ReaderAt struct {
	ctx     context.Context
	backend *S3Backend
	key     string
}

func (r *s3ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	rangeHeader := fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1)
	out, err := r.backend.client.GetObject(r.ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.backend.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return 0, err
	}
	defer out.Body.Close()
	return io.ReadFull(out.Body, p)
}

func (r *s3ReaderAt) Close() error { return nil }

// s3Writer buffers the whole object in memory and uploads it on Close,
// matching segment files' write-once-then-close lifecycle.
type s3Writer struct {
	ctx     context.Context
	backend *S3Backend
	key     string
	buf     bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	_, err := w.backend.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.backend.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	return err
}

var _ Backend = (*S3Backend)(nil)
