package router

import (
	"net/http"

	"github.com/pkg/errors"

	"fusuma/internal/config"
)

// WasmContentType は WebAssembly バンドルの Content-Type
const WasmContentType = "application/wasm"

// BuildAPIRoutes は API のルーティングテーブルを作成する
func BuildAPIRoutes() *Table {
	return NewTable().
		GET("/healthz", HealthCheck).
		GET("/hello", Hello).
		GET("/bad", Bad)
}

// BuildStaticRoutes はフロントエンドの静的ファイルを配信するテーブルを作成する
func BuildStaticRoutes(dir string) *Table {
	return NewTable().Serve(&StaticMount{Dir: dir})
}

// BuildWasmRoutes は WebAssembly バンドルを配信するテーブルを作成する
// 再ビルドしたバンドルがすぐに反映されるようキャッシュさせない
func BuildWasmRoutes(dir string) *Table {
	return NewTable().Serve(&StaticMount{
		Dir: dir,
		Header: http.Header{
			"Cache-Control": []string{"no-cache"},
		},
		ContentTypes: map[string]string{
			".wasm": WasmContentType,
		},
	})
}

// BuildRootRouter は API・wasm・静的ファイルのテーブルをまとめたルートテーブルを作成する
//
// 優先順位は API、wasm、静的ファイルの順。
// 静的ファイルはルートにマウントされ、他のどちらにも一致しないリクエストを受け持つ。
func BuildRootRouter(assets config.AssetsConfig) (*Table, error) {
	root := NewTable().
		Nest(assets.APIPrefix, BuildAPIRoutes()).
		Nest(assets.WasmPrefix, BuildWasmRoutes(assets.WasmDir)).
		Nest(RootPrefix, BuildStaticRoutes(assets.StaticDir))

	if err := root.Validate(); err != nil {
		return nil, errors.Wrap(err, "ルーティングテーブルの検証に失敗")
	}

	return root, nil
}
