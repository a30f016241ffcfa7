package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

type opener struct {
	once   sync.Once
	client S3API
	err    error
}

// NewOpener opens local files and `s3://bucket/key` objects. The S3 client is
// created from the default AWS config on first use.
func NewOpener() Opener {
	return &opener{}
}

func NewOpenerWithClient(client S3API) Opener {
	o := &opener{client: client}
	o.once.Do(func() {})
	return o
}

func (o *opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, fmt.Errorf("empty blob location")
	}
	if !strings.HasPrefix(location, s3Scheme) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", location, err)
		}
		return f, nil
	}

	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}
	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", location, err)
	}
	return out.Body, nil
}

func (o *opener) s3Client(ctx context.Context) (S3API, error) {
	o.once.Do(func() {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			o.err = fmt.Errorf("unable to load AWS config: %w", err)
			return
		}
		o.client = s3.NewFromConfig(cfg)
	})
	return o.client, o.err
}

func ParseS3Location(location string) (string, string, error) {
	rest := strings.TrimPrefix(location, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 location: %q", location)
	}
	return bucket, key, nil
}
