package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"improbable-love/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ErrObjectNotFound 表示对象不存在
var ErrObjectNotFound = errors.New("对象不存在")

// ObjectInfo 是列举对象时返回的元信息
type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

// MinioClient 是MinIO存储客户端的封装
type MinioClient struct {
	client     *minio.Client
	bucketName string
	logger     *zap.Logger
}

// NewMinioClient 创建一个新的MinIO客户端，并确保 bucket 存在
func NewMinioClient(ctx context.Context, cfg *config.MinIOConfig, logger *zap.Logger) (*MinioClient, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查bucket是否存在失败: %w", err)
	}
	if !exists {
		logger.Info("Bucket 不存在，正在创建", zap.String("bucket", cfg.BucketName))
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建bucket失败: %w", err)
		}
	}

	return &MinioClient{
		client:     client,
		bucketName: cfg.BucketName,
		logger:     logger,
	}, nil
}

// parseEndpoint 接受 http(s)://host:port 或裸 host:port
func parseEndpoint(raw string) (string, bool, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("解析MinIO endpoint失败: %w", err)
	}
	if u.Host != "" {
		return u.Host, u.Scheme == "https", nil
	}
	if raw != "" {
		return raw, false, nil
	}
	return "localhost:9000", false, nil
}

// PutObject 上传对象
func (c *MinioClient) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	info, err := c.client.PutObject(ctx, c.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传对象失败: %w", err)
	}
	c.logger.Debug("对象上传成功", zap.String("key", key), zap.Int64("size", info.Size))
	return nil
}

// GetObject 下载对象，不存在时返回 ErrObjectNotFound
func (c *MinioClient) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, c.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, c.wrapError(err, "获取对象失败")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, c.wrapError(err, "读取对象数据失败")
	}
	return data, nil
}

// DeleteObject 删除对象
func (c *MinioClient) DeleteObject(ctx context.Context, key string) error {
	if err := c.client.RemoveObject(ctx, c.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象失败: %w", err)
	}
	return nil
}

// ListObjects 列出指定前缀的所有对象
func (c *MinioClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objectCh := c.client.ListObjects(ctx, c.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var objects []ObjectInfo
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("列出对象失败: %w", object.Err)
		}
		objects = append(objects, ObjectInfo{Key: object.Key, LastModified: object.LastModified})
	}
	return objects, nil
}

func (c *MinioClient) wrapError(err error, msg string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
