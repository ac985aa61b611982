// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"originality-go/internal/config"
	"originality-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Scheme 是登记表中指向 MinIO 对象的地址前缀，形如 minio://bucket/path/to/object。
const Scheme = "minio://"

var (
	// ErrObjectNotFound 表示存储桶或对象不存在。
	ErrObjectNotFound = errors.New("object not found")
	// ErrTooLarge 表示文档超过了允许的大小。
	ErrTooLarge = errors.New("document exceeds size limit")
)

// ReadAtMost 读取 r 的全部内容，超过 limit 字节时返回 ErrTooLarge。limit <= 0 表示不限制。
func ReadAtMost(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// NewMinIO 创建 MinIO 客户端。
func NewMinIO(cfg config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Infof("MinIO 客户端初始化成功, endpoint: %s", cfg.Endpoint)
	return client, nil
}

// ParseLocation 把 minio://bucket/object 拆分为存储桶和对象名。
func ParseLocation(location string) (bucket, object string, err error) {
	if !strings.HasPrefix(location, Scheme) {
		return "", "", fmt.Errorf("not a minio location: %s", location)
	}
	rest := strings.TrimPrefix(location, Scheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid minio location: %s", location)
	}
	return bucket, object, nil
}

// ObjectFetcher 按 minio:// 地址下载对象内容。
type ObjectFetcher struct {
	client   *minio.Client
	maxBytes int64
}

// NewObjectFetcher 创建一个 ObjectFetcher。maxBytes <= 0 表示不限制对象大小。
func NewObjectFetcher(client *minio.Client, maxBytes int64) *ObjectFetcher {
	return &ObjectFetcher{client: client, maxBytes: maxBytes}
}

// Fetch 下载整个对象。对象不存在时返回 ErrObjectNotFound，超过大小限制时返回 ErrTooLarge。
func (f *ObjectFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	bucket, object, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	obj, err := f.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err == nil {
		defer obj.Close()
		var data []byte
		if data, err = ReadAtMost(obj, f.maxBytes); err == nil {
			return data, nil
		}
	}

	// GetObject 是惰性的，对象不存在的错误在第一次读取时才出现
	if IsNotFound(err) {
		log.Warnf("[ObjectFetcher] 对象不存在: %s", location)
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, location)
	}
	if errors.Is(err, ErrTooLarge) {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return nil, fmt.Errorf("从 MinIO 下载文件失败: %w", err)
}

// IsNotFound 判断错误是否表示存储桶或对象不存在。
func IsNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}
