package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/objectstore"
)

// API is the subset of *s3.Client the bucket uses.
type API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Presigner is implemented by *s3.PresignClient.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Bucket is an objectstore.Bucket over one S3 bucket.
type Bucket struct {
	client     API
	presigner  Presigner
	uploader   *manager.Uploader
	name       string
	publicBase string
}

var _ objectstore.Bucket = (*Bucket)(nil)

// NewBucket wraps an S3 client. publicBase is the unsigned URL of the
// bucket root, such as "https://acme-files.s3.eu-west-1.amazonaws.com".
func NewBucket(client API, presigner Presigner, name, publicBase string) *Bucket {
	return &Bucket{
		client:     client,
		presigner:  presigner,
		uploader:   manager.NewUploader(client),
		name:       name,
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}
}

func (b *Bucket) Name() string {
	return b.name
}

func (b *Bucket) Put(ctx context.Context, key string, r io.Reader, _ int64, opts stowage.UploadOptions) error {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(b.name),
		Key:      aws.String(key),
		Body:     r,
		Metadata: opts.Metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	if _, err := b.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (b *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, stowage.ErrNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

func (b *Bucket) Stat(ctx context.Context, key string) (stowage.ObjectInfo, error) {
	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return stowage.ObjectInfo{}, stowage.ErrNotFound
		}
		return stowage.ObjectInfo{}, fmt.Errorf("head object: %w", err)
	}

	return stowage.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(head.ContentLength),
		ContentType:  aws.ToString(head.ContentType),
		ETag:         strings.Trim(aws.ToString(head.ETag), `"`),
		LastModified: aws.ToTime(head.LastModified),
	}, nil
}

func (b *Bucket) List(ctx context.Context, prefix string) iter.Seq2[stowage.ObjectInfo, error] {
	return func(yield func(stowage.ObjectInfo, error) bool) {
		input := &s3.ListObjectsV2Input{Bucket: aws.String(b.name)}
		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}

		paginator := s3.NewListObjectsV2Paginator(b.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(stowage.ObjectInfo{}, fmt.Errorf("list objects: %w", err))
				return
			}
			for _, obj := range page.Contents {
				info := stowage.ObjectInfo{
					Key:          aws.ToString(obj.Key),
					Size:         aws.ToInt64(obj.Size),
					ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
					LastModified: aws.ToTime(obj.LastModified),
				}
				if !yield(info, nil) {
					return
				}
			}
		}
	}
}

func (b *Bucket) DeleteKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) > objectstore.MaxDeleteBatch {
		return fmt.Errorf("%w: %d keys in one delete", stowage.ErrInvalidInput, len(keys))
	}

	ids := make([]types.ObjectIdentifier, len(keys))
	for i, k := range keys {
		ids[i] = types.ObjectIdentifier{Key: aws.String(k)}
	}

	out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.name),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}

	for _, e := range out.Errors {
		if aws.ToString(e.Code) == "NoSuchKey" {
			continue
		}
		return fmt.Errorf("delete object %s: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message))
	}

	return nil
}

func (b *Bucket) PresignGet(ctx context.Context, key string, expires time.Duration, responseContentType string) (string, error) {
	if b.presigner == nil {
		return "", fmt.Errorf("%w: presign client", stowage.ErrMissingConfiguration)
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	}
	if responseContentType != "" {
		input.ResponseContentType = aws.String(responseContentType)
	}

	req, err := b.presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}

	return req.URL, nil
}

func (b *Bucket) PublicURL(key string) string {
	u, err := url.Parse(b.publicBase)
	if err != nil {
		return b.publicBase + "/" + key
	}
	return u.JoinPath(key).String()
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
