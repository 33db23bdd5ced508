// Package artifacts uploads run artifacts to an S3-compatible bucket.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	CreateBucket bool   `mapstructure:"create_bucket"`
}

// objectStore is the subset of *minio.Client the publisher uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Upload struct {
	Key  string
	Size int64
}

type Publisher struct {
	store  objectStore
	bucket string
	prefix string
}

// New connects to the endpoint and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("publish endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	p := newPublisher(client, cfg)
	if err := p.ensureBucket(ctx, cfg); err != nil {
		return nil, err
	}
	return p, nil
}

func newPublisher(store objectStore, cfg Config) *Publisher {
	return &Publisher{store: store, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}
}

func (p *Publisher) ensureBucket(ctx context.Context, cfg Config) error {
	exists, err := p.store.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", p.bucket, err)
	}
	if exists {
		return nil
	}
	if !cfg.CreateBucket {
		return fmt.Errorf("bucket %s does not exist", p.bucket)
	}
	if err := p.store.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", p.bucket, err)
	}
	return nil
}

// ObjectKey maps a file under root to "<prefix>/<relative path>" with
// forward slashes.
func ObjectKey(prefix, root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", file, root)
	}
	return path.Join(strings.Trim(prefix, "/"), filepath.ToSlash(rel)), nil
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".jsonl":
		return "application/x-ndjson"
	case ".tsv":
		return "text/tab-separated-values"
	default:
		return "application/octet-stream"
	}
}

// PublishDir uploads every regular file under dir, keyed relative to root.
// A missing dir uploads nothing.
func (p *Publisher) PublishDir(ctx context.Context, root, dir string) ([]Upload, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var uploads []Upload
	err := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		key, err := ObjectKey(p.prefix, root, file)
		if err != nil {
			return err
		}
		info, err := p.store.FPutObject(ctx, p.bucket, key, file, minio.PutObjectOptions{ContentType: contentType(file)})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", file, err)
		}
		log.WithFields(log.Fields{"bucket": p.bucket, "key": key, "size": info.Size}).Debug("Uploaded artifact")
		uploads = append(uploads, Upload{Key: key, Size: info.Size})
		return nil
	})
	return uploads, err
}
