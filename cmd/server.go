// Package main はFusumaサーバーコマンドの実装です
package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"fusuma/internal/config"
	"fusuma/internal/server"
)

// options はコマンドラインオプション
type options struct {
	configPath string
	host       string
	port       int
	staticDir  string
	wasmDir    string
}

func main() {
	if err := newServerCmd(&options{}).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newServerCmd はサーバーを起動するコマンドを作成する
// 解析したフラグの値は opts に格納される
func newServerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "server [flags]",
		Short:        "Fusuma: API と静的ファイルを配信する HTTP サーバー",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "設定ファイルのパス (環境変数 "+config.EnvConfigPath+")")
	flags.StringVar(&opts.host, "host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
	flags.IntVarP(&opts.port, "port", "p", 0, "サーバーのポート (デフォルト: 3000)")
	flags.StringVar(&opts.staticDir, "static-dir", "", "フロントエンドのディレクトリ")
	flags.StringVar(&opts.wasmDir, "wasm-dir", "", "WebAssembly バンドルのディレクトリ")

	return cmd
}

// loadConfig は設定を読み込み、明示的に指定されたオプションで上書きする
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadUnvalidated(opts.configPath)
	if err != nil {
		return nil, errors.Wrap(err, "設定の読み込みに失敗しました")
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("static-dir") {
		cfg.Assets.StaticDir = opts.staticDir
	}
	if flags.Changed("wasm-dir") {
		cfg.Assets.WasmDir = opts.wasmDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "設定の検証に失敗しました")
	}

	return cfg, nil
}
