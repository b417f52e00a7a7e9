package server

import (
	"context"

	"fusuma/internal/config"
	"fusuma/internal/logging"
)

// Run はロガーを初期化し、サーバーを作成して起動する
// どちらのエントリポイントからも同じ手順で起動するために使う
func Run(ctx context.Context, cfg *config.Config) error {
	logger := logging.Init(cfg.Log)

	srv, err := New(cfg, logger)
	if err != nil {
		logger.Error("サーバーの作成に失敗しました", "error", err)
		return err
	}

	logger.Info("Fusuma サーバーを起動します", "url", "http://"+cfg.ServerAddress())
	if err := srv.Start(ctx); err != nil {
		logger.Error("サーバーの起動に失敗しました", "error", err)
		return err
	}

	return nil
}
