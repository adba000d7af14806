package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
)

// keyTimeLayout keeps archive keys sortable per dump.
const keyTimeLayout = "20060102T150405.000000Z"

// Store mirrors every stored analysis into a bucket as an append-only
// history. The SQL store keeps only the latest record per dump.
type Store struct {
	client     *minio.Client
	bucketName string
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "minio client")
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket %s", bucket)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, errors.Wrapf(err, "create bucket %s", bucket)
		}
	}

	return &Store{client: cli, bucketName: bucket}, nil
}

// ObjectKey is analyses/<escaped dump id>/<created_at>.json.
func ObjectKey(a *dump.Analysis) string {
	return fmt.Sprintf("analyses/%s/%s.json",
		url.PathEscape(a.DumpID), a.CreatedAt.UTC().Format(keyTimeLayout))
}

// Put uploads the full record as JSON and returns its object URL.
func (s *Store) Put(ctx context.Context, a *dump.Analysis) (string, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return "", errors.Wrap(err, "encode analysis")
	}
	key := ObjectKey(a)
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", errors.Wrapf(err, "put %s", key)
	}

	// URL publik (jika bucket public), kalau private harus generate presigned URL
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucketName, key), nil
}
