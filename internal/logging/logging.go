// Package logging はプロセス全体で共有するロガーを提供します。
//
// ロガーは起動時に Init で一度だけ初期化され、以降は再設定されません。
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/natefinch/lumberjack.v2"

	"fusuma/internal/config"
)

// Name はログレコードに付与されるロガー名
const Name = "fusuma"

var once sync.Once

// Init はプロセス全体のロガーを初期化する
// 二回目以降の呼び出しは設定を無視し、初期化済みのロガーを返す
func Init(cfg config.LogConfig) hclog.Logger {
	once.Do(func() {
		hclog.SetDefault(New(cfg, os.Stdout))
	})
	return hclog.Default()
}

// L はプロセス全体のロガーを返す
func L() hclog.Logger {
	return hclog.Default()
}

// New は設定に従って新しいロガーを作成する
// cfg.File が指定されている場合はローテーション付きのファイルにも書き込む
func New(cfg config.LogConfig, out io.Writer) hclog.Logger {
	if cfg.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
	}

	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       Name,
		Level:      level,
		Output:     out,
		JSONFormat: cfg.JSON,
	})
}
