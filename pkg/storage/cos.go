package stores

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// CosStore represents Tencent Cloud Object Storage
type CosStore struct {
	SecretID   string
	SecretKey  string
	Region     string
	BucketName string
}

// client creates and returns a COS client
func (c *CosStore) client() (*cos.Client, error) {
	u, err := url.Parse(fmt.Sprintf("https://%s.cos.%s.myqcloud.com", c.BucketName, c.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to parse COS URL: %w", err)
	}
	return cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  c.SecretID,
			SecretKey: c.SecretKey,
		},
	}), nil
}

func (c *CosStore) Delete(ctx context.Context, key string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	if _, err = client.Object.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (c *CosStore) Exists(ctx context.Context, key string) (bool, error) {
	client, err := c.client()
	if err != nil {
		return false, err
	}
	ok, err := client.Object.IsExist(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return ok, nil
}

func (c *CosStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	client, err := c.client()
	if err != nil {
		return nil, 0, err
	}
	resp, err := client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object: %w", err)
	}
	return resp.Body, resp.ContentLength, nil
}

func (c *CosStore) Write(ctx context.Context, key string, r io.Reader) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	if _, err = client.Object.Put(ctx, key, r, nil); err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

func (c *CosStore) List(ctx context.Context, prefix string) ([]string, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	var keys []string
	marker := ""
	for {
		res, _, err := client.Bucket.Get(ctx, &cos.BucketGetOptions{Prefix: prefix, Marker: marker, MaxKeys: 1000})
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range res.Contents {
			keys = append(keys, obj.Key)
		}
		if !res.IsTruncated {
			return keys, nil
		}
		marker = res.NextMarker
	}
}
