package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// DefaultS3Region is used when S3Config.Region is empty.
const DefaultS3Region = "us-east-1"

// S3Config configures the s3 driver. Credentials fall back to the default
// AWS chain when AccessKeyID is empty.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // optional, e.g. a MinIO URL
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// S3 stores resources as objects in one bucket, optionally below a key prefix.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3 returns an S3 backed store.
func NewS3(ctx context.Context, cfg S3Config, opts ...Option) (*S3, error) {
	return newS3(ctx, cfg, nil, opts...)
}

func newS3(ctx context.Context, cfg S3Config, httpClient *http.Client, opts ...Option) (*S3, error) {
	o := newOptions(opts)
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	prefix, err := cleanPrefix(strings.Trim(cfg.Prefix, "/"))
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = DefaultS3Region
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if cfg.PathStyle {
			so.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			so.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if httpClient != nil {
			so.HTTPClient = httpClient
		}
	})

	return &S3{client: client, bucket: cfg.Bucket, prefix: prefix, logger: o.logger}, nil
}

func (s *S3) Driver() Driver { return DriverS3 }

func (s *S3) key(p string) (string, string, error) {
	clean, err := Clean(p)
	if err != nil {
		return "", "", err
	}
	if s.prefix == "" {
		return clean, clean, nil
	}

	return path.Join(s.prefix, clean), clean, nil
}

func (s *S3) Read(ctx context.Context, p string) ([]byte, error) {
	key, _, err := s.key(p)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, s.wrap(p, err)
	}
	defer func() { _ = out.Body.Close() }()

	return io.ReadAll(out.Body)
}

func (s *S3) Write(ctx context.Context, p string, data []byte) error {
	key, _, err := s.key(p)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return s.wrap(p, err)
	}
	s.logger.Debug("wrote object", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("size", len(data)))

	return nil
}

func (s *S3) Stat(ctx context.Context, p string) (Info, error) {
	key, clean, err := s.key(p)
	if err != nil {
		return Info{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return Info{}, s.wrap(p, err)
	}

	return Info{Path: clean, Size: aws.ToInt64(out.ContentLength), ModTime: aws.ToTime(out.LastModified)}, nil
}

func (s *S3) List(ctx context.Context, prefix string) ([]Info, error) {
	prefix, err := cleanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	full := prefix
	if s.prefix != "" {
		full = s.prefix + "/" + prefix
	}

	var infos []Info
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &full, ContinuationToken: token})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			infos = append(infos, Info{Path: key, Size: aws.ToInt64(obj.Size), ModTime: aws.ToTime(obj.LastModified)})
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })

	return infos, nil
}

func (s *S3) wrap(p string, err error) error {
	var re *awshttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}

	return err
}
