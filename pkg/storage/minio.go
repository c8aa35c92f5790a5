// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"prima-facie-go/internal/config"
	"prima-facie-go/pkg/log"
)

// Presigner issues short-lived download links for stored documents. It
// implements tools.LinkSigner.
type Presigner struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// NewPresigner 初始化 MinIO 客户端。
func NewPresigner(cfg config.MinIOConfig) (*Presigner, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	ttl := time.Duration(cfg.LinkTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	log.Info("MinIO 客户端初始化成功")
	return &Presigner{client: client, bucket: cfg.BucketName, ttl: ttl}, nil
}

// CheckBucket 检查存储桶 (Bucket) 是否存在。
func (p *Presigner) CheckBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("存储桶 '%s' 不存在", p.bucket)
	}
	log.Infof("存储桶 '%s' 已存在", p.bucket)
	return nil
}

// PresignedURL returns a GET link for objectPath valid for the configured TTL.
func (p *Presigner) PresignedURL(ctx context.Context, objectPath string) (string, error) {
	object, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(object)))
	u, err := p.client.PresignedGetObject(ctx, p.bucket, object, p.ttl, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func cleanObjectPath(p string) (string, error) {
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if p == "" {
		return "", errors.New("empty object path")
	}
	clean := path.Clean(p)
	if clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return clean, nil
}
