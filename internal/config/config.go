package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig `yaml:"server"`
	Assets AssetsConfig `yaml:"assets"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号 (0 はエフェメラルポート)

	// タイムアウト設定
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // 読み込みタイムアウト
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // 書き込みタイムアウト (0 は無制限)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // グレースフルシャットダウンの猶予

	// gin の動作モード (debug / release / test)
	Mode string `yaml:"mode"`
}

// AssetsConfig は静的ファイル配信の設定
type AssetsConfig struct {
	StaticDir  string `yaml:"static_dir"`  // フロントエンドのビルド成果物
	WasmDir    string `yaml:"wasm_dir"`    // WebAssembly バンドル
	APIPrefix  string `yaml:"api_prefix"`  // API をマウントするプレフィックス
	WasmPrefix string `yaml:"wasm_prefix"` // wasm をマウントするプレフィックス
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`

	// ファイル出力 (空の場合は標準出力のみ)
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// EnvConfigPath は設定ファイルのパスを指定する環境変数
const EnvConfigPath = "FUSUMA_CONFIG"

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0,
			ShutdownTimeout: 5 * time.Second,
			Mode:            "release",
		},
		Assets: AssetsConfig{
			StaticDir:  "./front/dist",
			WasmDir:    "./wasm/pkg",
			APIPrefix:  "/-",
			WasmPrefix: "/wasm",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load は設定を読み込んで検証する
// デフォルト値 < 設定ファイル < 環境変数 の順に上書きする
func Load(path string) (*Config, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return nil, err
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "設定の検証に失敗")
	}

	return cfg, nil
}

// LoadUnvalidated は Load と同じ順序で設定を読み込むが検証はしない
// 呼び出し側でさらに値を上書きしてから Validate する場合に使う
func LoadUnvalidated(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile はYAMLファイルの内容で設定を上書きする
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "設定ファイル %s の読み込みに失敗", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "設定ファイル %s の解析に失敗", path)
	}
	return nil
}

// applyEnv は環境変数の値で設定を上書きする
func (c *Config) applyEnv() error {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Assets.StaticDir = getEnvOrDefault("STATIC_DIR", c.Assets.StaticDir)
	c.Assets.WasmDir = getEnvOrDefault("WASM_DIR", c.Assets.WasmDir)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)

	port, err := getEnvAsIntOrDefault("PORT", c.Server.Port)
	if err != nil {
		return err
	}
	c.Server.Port = port

	return nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return errors.Errorf("無効な動作モード: %q", c.Server.Mode)
	}

	// マウントプレフィックスの検証
	if err := validatePrefix(c.Assets.APIPrefix); err != nil {
		return errors.Wrap(err, "api_prefix")
	}
	if err := validatePrefix(c.Assets.WasmPrefix); err != nil {
		return errors.Wrap(err, "wasm_prefix")
	}

	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		return errors.Errorf("無効なログレベル: %q", c.Log.Level)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func validatePrefix(prefix string) error {
	switch {
	case !strings.HasPrefix(prefix, "/"):
		return errors.Errorf("プレフィックスは / で始まる必要があります: %q", prefix)
	case prefix == "/":
		return errors.New("ルートはプレフィックスに指定できません")
	case strings.HasSuffix(prefix, "/"):
		return errors.Errorf("プレフィックスの末尾に / は不要です: %q", prefix)
	}
	return nil
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "環境変数 %s が整数ではありません", key)
	}
	return intVal, nil
}
