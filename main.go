package main

import (
	"context"
	"os"

	"fusuma/internal/config"
	"fusuma/internal/logging"
	"fusuma/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load("")
	if err != nil {
		logging.L().Error("設定の読み込みに失敗しました", "error", err)
		os.Exit(1)
	}

	// サーバーを起動
	if err := server.Run(context.Background(), cfg); err != nil {
		os.Exit(1)
	}
}
