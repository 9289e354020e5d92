package stores

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/code-100-precent/LingSearch/pkg/utils"
)

const (
	KindLocal = "local" // Local file system storage
	KindCos   = "cos"   // Tencent Cloud Object Storage
	KindMinio = "minio" // MinIO / S3 compatible storage
	KindQiNiu = "qiniu" // Qiniu Cloud Storage
	KindOSS   = "oss"   // Alibaba Cloud Object Storage Service
	KindS3    = "s3"    // Amazon S3
)

var ErrInvalidPath = &utils.Error{Code: http.StatusBadRequest, Message: "invalid path"}

// Store is the common blob storage interface
type Store interface {
	// Read opens an object and reports its size (-1 when unknown)
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Write(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// List returns the keys under prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config selects a store kind and carries the settings of every kind.
type Config struct {
	Kind  string
	Local LocalStore
	S3    S3Store
	Minio MinioStore
	OSS   OSSStore
	Cos   CosStore
	QiNiu QiNiuStore
}

// ConfigFromEnv reads STORAGE_KIND and the per-store variables.
func ConfigFromEnv() Config {
	kind := utils.GetEnv("STORAGE_KIND")
	if kind == "" {
		kind = KindLocal
	}
	root := utils.GetEnv("STORAGE_LOCAL_ROOT")
	if root == "" {
		root = "./snapshots"
	}
	return Config{
		Kind: kind,
		Local: LocalStore{
			Root:       root,
			NewDirPerm: 0755,
		},
		S3: S3Store{
			Region:          utils.GetEnv("S3_REGION"),
			AccessKeyID:     utils.GetEnv("S3_ACCESS_KEY_ID"),
			AccessKeySecret: utils.GetEnv("S3_SECRET_ACCESS_KEY"),
			BucketName:      utils.GetEnv("S3_BUCKET"),
			Endpoint:        utils.GetEnv("S3_ENDPOINT"),
			UsePathStyle:    utils.GetBoolEnv("S3_USE_PATH_STYLE"),
		},
		Minio: MinioStore{
			Endpoint:  utils.GetEnv("MINIO_ENDPOINT"),
			AccessKey: utils.GetEnv("MINIO_ACCESS_KEY"),
			SecretKey: utils.GetEnv("MINIO_SECRET_KEY"),
			Bucket:    utils.GetEnv("MINIO_BUCKET"),
			UseSSL:    utils.GetBoolEnv("MINIO_USE_SSL"),
		},
		OSS: OSSStore{
			Endpoint:        utils.GetEnv("OSS_ENDPOINT"),
			AccessKeyID:     utils.GetEnv("OSS_ACCESS_KEY_ID"),
			AccessKeySecret: utils.GetEnv("OSS_ACCESS_KEY_SECRET"),
			BucketName:      utils.GetEnv("OSS_BUCKET"),
		},
		Cos: CosStore{
			SecretID:   utils.GetEnv("COS_SECRET_ID"),
			SecretKey:  utils.GetEnv("COS_SECRET_KEY"),
			Region:     utils.GetEnv("COS_REGION"),
			BucketName: utils.GetEnv("COS_BUCKET_NAME"),
		},
		QiNiu: QiNiuStore{
			AccessKey:  utils.GetEnv("QINIU_ACCESS_KEY"),
			SecretKey:  utils.GetEnv("QINIU_SECRET_KEY"),
			BucketName: utils.GetEnv("QINIU_BUCKET"),
			Domain:     utils.GetEnv("QINIU_DOMAIN"),
			Private:    utils.GetBoolEnv("QINIU_PRIVATE"),
		},
	}
}

// New creates the store selected by cfg.Kind
func New(cfg Config) (Store, error) {
	switch cfg.Kind {
	case KindLocal, "":
		s := cfg.Local
		if s.NewDirPerm == 0 {
			s.NewDirPerm = 0755
		}
		return &s, nil
	case KindS3:
		s := cfg.S3
		return &s, nil
	case KindMinio:
		s, err := NewMinioStore(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindOSS:
		s := cfg.OSS
		return &s, nil
	case KindCos:
		s := cfg.Cos
		return &s, nil
	case KindQiNiu:
		s := cfg.QiNiu
		return &s, nil
	}
	return nil, fmt.Errorf("storage: unknown kind %q", cfg.Kind)
}
