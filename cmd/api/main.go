package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adaptive-rag/internal/app"
	"adaptive-rag/internal/app/api"
	"adaptive-rag/pkg/config"
	"adaptive-rag/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认 $RAG_CONFIG 或 configs/api.yaml）")
	envFile := flag.String("env", ".env", ".env 文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	ctx := context.Background()
	bootstrap, err := app.NewBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	application, err := api.NewApp(ctx, bootstrap)
	if err != nil {
		_ = bootstrap.Close()
		log.Fatalf("创建 API 应用失败: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, utils.PositiveInt(cfg.API.Port, 4001))

	go func() {
		if err := application.Run(addr); err != nil && err != http.ErrServerClosed {
			log.Printf("API 服务异常退出: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Printf("关闭失败: %v", err)
	}
	log.Println("API 服务已关闭")
}
