package stores

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStore represents Alibaba Cloud OSS storage
type OSSStore struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	BucketName      string
}

// bucket returns the OSS bucket instance
func (o *OSSStore) bucket() (*oss.Bucket, error) {
	client, err := oss.New(o.Endpoint, o.AccessKeyID, o.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}
	bucket, err := client.Bucket(o.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	return bucket, nil
}

func (o *OSSStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	bucket, err := o.bucket()
	if err != nil {
		return nil, 0, err
	}
	props, err := bucket.GetObjectMeta(key, oss.WithContext(ctx))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object meta: %w", err)
	}
	size := int64(-1)
	if cl := props.Get("Content-Length"); cl != "" {
		if v, err := strconv.ParseInt(cl, 10, 64); err == nil {
			size = v
		}
	}
	body, err := bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object: %w", err)
	}
	return body, size, nil
}

func (o *OSSStore) Write(ctx context.Context, key string, r io.Reader) error {
	bucket, err := o.bucket()
	if err != nil {
		return err
	}
	if err = bucket.PutObject(key, r, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

func (o *OSSStore) Delete(ctx context.Context, key string) error {
	bucket, err := o.bucket()
	if err != nil {
		return err
	}
	if err = bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (o *OSSStore) Exists(ctx context.Context, key string) (bool, error) {
	bucket, err := o.bucket()
	if err != nil {
		return false, err
	}
	exists, err := bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return exists, nil
}

func (o *OSSStore) List(ctx context.Context, prefix string) ([]string, error) {
	bucket, err := o.bucket()
	if err != nil {
		return nil, err
	}
	var keys []string
	token := ""
	for {
		res, err := bucket.ListObjectsV2(oss.Prefix(prefix), oss.ContinuationToken(token), oss.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range res.Objects {
			keys = append(keys, obj.Key)
		}
		if !res.IsTruncated {
			return keys, nil
		}
		token = res.NextContinuationToken
	}
}
