package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"orpheus/config"
	"orpheus/logger"
)

var minioClient *minio.Client

// InitMinio connects to the MinIO server and ensures the audio bucket exists.
func InitMinio(cfg *config.Config) error {
	logger.Info("Connecting to MinIO server",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("MinIO client initialized")
	return nil
}

// GetMinioClient returns the shared MinIO client instance.
func GetMinioClient() *minio.Client {
	return minioClient
}

// UploadAudio stores a finished WAV render under the given object name.
func UploadAudio(ctx context.Context, bucket, objectName string, wav []byte) error {
	if minioClient == nil {
		return fmt.Errorf("minio client not initialized")
	}
	_, err := minioClient.PutObject(ctx, bucket, objectName, bytes.NewReader(wav), int64(len(wav)),
		minio.PutObjectOptions{ContentType: "audio/wav"})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// DownloadAudio fetches a stored WAV render by object name.
func DownloadAudio(ctx context.Context, bucket, objectName string) ([]byte, error) {
	if minioClient == nil {
		return nil, fmt.Errorf("minio client not initialized")
	}
	object, err := minioClient.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", objectName, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectName, err)
	}
	return data, nil
}
