package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"

	"orpheus/config"
	"orpheus/storage"
)

var (
	minioPrefix string
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the audio object store",
	Long:  `Lists generated tracks stored in the MinIO bucket, optionally deleting objects under a prefix.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO config: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("failed to connect to MinIO: %v", err)
		}
		client := storage.GetMinioClient()

		ctx := context.Background()
		objects := client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{
			Prefix:    minioPrefix,
			Recursive: true,
		})

		var count int
		var totalSize int64
		for object := range objects {
			if object.Err != nil {
				log.Fatalf("failed to list objects: %v", object.Err)
			}
			if minioDelete {
				if err := client.RemoveObject(ctx, cfg.MinioBucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
					log.Fatalf("failed to delete %s: %v", object.Key, err)
				}
				fmt.Printf("deleted %s\n", object.Key)
			} else {
				fmt.Printf("%10d  %s  %s\n", object.Size, object.LastModified.Format("2006-01-02 15:04:05"), object.Key)
			}
			count++
			totalSize += object.Size
		}

		if minioDelete {
			fmt.Printf("deleted %d objects\n", count)
		} else {
			fmt.Printf("%d objects, %d bytes total\n", count, totalSize)
		}
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "audio/", "object prefix to list or delete")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "delete every object under the prefix")
}
