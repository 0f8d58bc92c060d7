package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"orpheus/cache"
	"orpheus/config"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Test the Redis connection",
	Long:  `Connects to Redis with the configured settings and performs a basic read/write check.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Redis config: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		fmt.Println("Redis connection OK")

		if err := cache.TestRedis(); err != nil {
			log.Fatalf("Redis read/write check failed: %v", err)
		}
		fmt.Println("Redis read/write check OK")

		if err := cache.CloseRedis(); err != nil {
			log.Printf("error closing Redis connection: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
