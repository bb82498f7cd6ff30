package promoted

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	Object    string
}

// ObjectLoader reads the promoted document from an S3-compatible bucket.
type ObjectLoader struct {
	client *minio.Client
	bucket string
	object string
}

func NewObjectLoader(cfg ObjectConfig) (*ObjectLoader, error) {
	if cfg.Bucket == "" || cfg.Object == "" {
		return nil, fmt.Errorf("promoted object loader: bucket and object are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	return &ObjectLoader{client: client, bucket: cfg.Bucket, object: cfg.Object}, nil
}

func (l *ObjectLoader) Load(ctx context.Context) ([]Promoted, error) {
	obj, err := l.client.GetObject(ctx, l.bucket, l.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get promoted object %s/%s: %w", l.bucket, l.object, err)
	}
	defer obj.Close()
	entries, err := Parse(obj)
	if err != nil {
		return nil, fmt.Errorf("promoted object %s/%s: %w", l.bucket, l.object, err)
	}
	return entries, nil
}
