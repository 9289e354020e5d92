package stores

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/code-100-precent/LingSearch/pkg/utils"
	"github.com/qiniu/go-sdk/v7/auth/qbox"
	"github.com/qiniu/go-sdk/v7/storage"
)

// QiNiuStore represents Qiniu Cloud Storage
type QiNiuStore struct {
	AccessKey  string
	SecretKey  string
	BucketName string
	// Domain is the bound access domain, e.g. https://static.example.com
	Domain string
	// Private buckets require signed download URLs
	Private bool
}

func (q *QiNiuStore) getMac() *qbox.Mac {
	return qbox.NewMac(q.AccessKey, q.SecretKey)
}

// makeConfig generates storage.Config; region is auto-detected when possible
func (q *QiNiuStore) makeConfig() storage.Config {
	cfg := storage.Config{
		UseHTTPS: strings.HasPrefix(strings.ToLower(q.Domain), "https://"),
	}
	if zone, err := storage.GetRegion(q.AccessKey, q.BucketName); err == nil && zone != nil {
		cfg.Region = zone
	}
	return cfg
}

func (q *QiNiuStore) uploadToken(key string) string {
	p := storage.PutPolicy{
		Scope:   q.BucketName + ":" + key, // 允许覆盖同名文件
		Expires: 3600,
	}
	return p.UploadToken(q.getMac())
}

// Write uses form upload; snapshots are small enough to buffer
func (q *QiNiuStore) Write(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	cfg := q.makeConfig()
	uploader := storage.NewFormUploader(&cfg)
	ret := storage.PutRet{}
	return uploader.Put(ctx, &ret, q.uploadToken(key), key, bytes.NewReader(data), int64(len(data)), &storage.PutExtra{})
}

// Exists checks by Stat (612 means not found)
func (q *QiNiuStore) Exists(ctx context.Context, key string) (bool, error) {
	cfg := q.makeConfig()
	bm := storage.NewBucketManager(q.getMac(), &cfg)
	_, err := bm.Stat(q.BucketName, key)
	if err == nil {
		return true, nil
	}
	if e, ok := err.(*storage.ErrorInfo); ok && e.Code == 612 {
		return false, nil
	}
	return false, err
}

func (q *QiNiuStore) Delete(ctx context.Context, key string) error {
	cfg := q.makeConfig()
	bm := storage.NewBucketManager(q.getMac(), &cfg)
	return bm.Delete(q.BucketName, key)
}

// Read downloads through the bound domain, signing the URL for private buckets
func (q *QiNiuStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	u := q.downloadURL(key)
	if u == "" {
		return nil, 0, ErrInvalidPath
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, &utils.Error{Code: resp.StatusCode, Message: "qiniu read failed"}
	}
	return resp.Body, resp.ContentLength, nil
}

func (q *QiNiuStore) List(ctx context.Context, prefix string) ([]string, error) {
	cfg := q.makeConfig()
	bm := storage.NewBucketManager(q.getMac(), &cfg)
	var keys []string
	marker := ""
	for {
		entries, _, next, hasNext, err := bm.ListFiles(q.BucketName, prefix, "", marker, 1000)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
		if !hasNext {
			return keys, nil
		}
		marker = next
	}
}

func (q *QiNiuStore) downloadURL(key string) string {
	if q.Domain == "" {
		return ""
	}
	d := q.Domain
	if !strings.HasPrefix(d, "http://") && !strings.HasPrefix(d, "https://") {
		d = "http://" + d
	}
	if !q.Private {
		return storage.MakePublicURLv2(d, key)
	}
	deadline := time.Now().Add(time.Hour).Unix()
	return storage.MakePrivateURL(q.getMac(), d, key, deadline)
}
