package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fusuma/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// writeFile はテスト用のファイルを作成する
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testAssets(t *testing.T) config.AssetsConfig {
	t.Helper()
	assets := config.Default().Assets
	assets.StaticDir = t.TempDir()
	assets.WasmDir = t.TempDir()
	return assets
}

func newEngine(t *testing.T, table *Table) *gin.Engine {
	t.Helper()
	engine := gin.New()
	require.NoError(t, table.Install(engine))
	return engine
}

func get(engine http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestBuildAPIRoutes(t *testing.T) {
	routes := BuildAPIRoutes().Routes()
	require.Len(t, routes, 6)

	got := make([]string, 0, len(routes))
	for _, r := range routes {
		got = append(got, r.Method+" "+r.Path)
	}
	assert.Equal(t, []string{
		"GET /healthz", "HEAD /healthz",
		"GET /hello", "HEAD /hello",
		"GET /bad", "HEAD /bad",
	}, got)
}

func TestRootRouterHead(t *testing.T) {
	table, err := BuildRootRouter(testAssets(t))
	require.NoError(t, err)
	engine := newEngine(t, table)

	testCases := []struct {
		target string
		status int
	}{
		{"/-/healthz", http.StatusOK},
		{"/-/hello", http.StatusOK},
		{"/-/bad", http.StatusNotFound},
		{"/-/missing", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			rr := httptest.NewRecorder()
			engine.ServeHTTP(rr, httptest.NewRequest(http.MethodHead, tc.target, nil))
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestRootRouterAPI(t *testing.T) {
	table, err := BuildRootRouter(testAssets(t))
	require.NoError(t, err)
	engine := newEngine(t, table)

	testCases := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{"ヘルスチェック", "/-/healthz", http.StatusOK, "OK"},
		{"挨拶", "/-/hello", http.StatusOK, "Hello, World!"},
		{"意図的なエラー", "/-/bad", http.StatusNotFound, "BOOM"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := get(engine, tc.target)
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.body, rr.Body.String())
			assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
		})
	}
}

func TestRootRouterStatic(t *testing.T) {
	assets := testAssets(t)
	writeFile(t, assets.StaticDir, "index.html", "<h1>fusuma</h1>")
	writeFile(t, assets.StaticDir, "assets/app.js", "console.log(1)")
	writeFile(t, assets.StaticDir, "app.wasm", "static-copy")
	writeFile(t, assets.StaticDir, "-/healthz", "shadowed")
	writeFile(t, assets.StaticDir, "-/extra", "shadowed")
	writeFile(t, assets.WasmDir, "app.wasm", "\x00asm\x01\x00\x00\x00")

	table, err := BuildRootRouter(assets)
	require.NoError(t, err)
	engine := newEngine(t, table)

	t.Run("ファイルの内容をそのまま返す", func(t *testing.T) {
		rr := get(engine, "/assets/app.js")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "console.log(1)", rr.Body.String())
	})

	t.Run("ルートは index.html", func(t *testing.T) {
		rr := get(engine, "/")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "<h1>fusuma</h1>", rr.Body.String())
	})

	t.Run("存在しないファイル", func(t *testing.T) {
		rr := get(engine, "/nonexistent")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("API が静的ファイルより優先される", func(t *testing.T) {
		rr := get(engine, "/-/healthz")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "OK", rr.Body.String())
	})

	t.Run("API プレフィックス配下は静的ファイルを参照しない", func(t *testing.T) {
		rr := get(engine, "/-/extra")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.NotContains(t, rr.Body.String(), "shadowed")
	})

	t.Run("wasm を配信する", func(t *testing.T) {
		rr := get(engine, "/wasm/app.wasm")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "\x00asm\x01\x00\x00\x00", rr.Body.String())
		assert.Equal(t, WasmContentType, rr.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))
	})

	t.Run("wasm が存在しない場合は 404", func(t *testing.T) {
		rr := get(engine, "/wasm/missing.wasm")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("静的ファイルの wasm は通常の配信", func(t *testing.T) {
		rr := get(engine, "/app.wasm")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "static-copy", rr.Body.String())
		assert.Empty(t, rr.Header().Get("Cache-Control"))
	})

	t.Run("ディレクトリの一覧は返さない", func(t *testing.T) {
		for _, target := range []string{"/assets/", "/assets", "/wasm/", "/-/"} {
			rr := get(engine, target)
			assert.Equal(t, http.StatusNotFound, rr.Code, target)
			assert.NotContains(t, rr.Body.String(), "<pre>", target)
			assert.NotContains(t, rr.Body.String(), "app.js", target)
		}
	})

	t.Run("GET 以外は 404", func(t *testing.T) {
		rr := httptest.NewRecorder()
		engine.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/assets/app.js", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

// TestRootRouterNonCanonicalPath は正規化前のパスでも予約済みプレフィックスを迂回できないことをテストする
func TestRootRouterNonCanonicalPath(t *testing.T) {
	assets := testAssets(t)
	writeFile(t, assets.StaticDir, "-/healthz", "shadowed")
	writeFile(t, assets.StaticDir, "-/extra", "shadowed")
	writeFile(t, assets.StaticDir, "wasm/app.wasm", "shadowed")
	writeFile(t, assets.StaticDir, "assets/app.js", "console.log(1)")

	table, err := BuildRootRouter(assets)
	require.NoError(t, err)
	engine := newEngine(t, table)

	testCases := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{"二重スラッシュ", "//-/extra", http.StatusNotFound, ""},
		{"二重スラッシュの API", "//-/healthz", http.StatusNotFound, ""},
		{"ドットセグメント", "/x/../-/extra", http.StatusNotFound, ""},
		{"カレントディレクトリ", "/./-/extra", http.StatusNotFound, ""},
		{"wasm プレフィックス", "//wasm/app.wasm", http.StatusNotFound, ""},
		{"予約されていないパスは配信する", "//assets/app.js", http.StatusOK, "console.log(1)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := get(engine, tc.target)
			assert.Equal(t, tc.status, rr.Code)
			assert.NotContains(t, rr.Body.String(), "shadowed")
			if tc.body != "" {
				assert.Equal(t, tc.body, rr.Body.String())
			}
		})
	}
}

// TestIdempotence は同じリクエストが常に同じレスポンスになることをテストする
func TestIdempotence(t *testing.T) {
	assets := testAssets(t)
	writeFile(t, assets.StaticDir, "index.html", "<h1>fusuma</h1>")

	table, err := BuildRootRouter(assets)
	require.NoError(t, err)
	engine := newEngine(t, table)

	for _, target := range []string{"/-/healthz", "/-/hello", "/-/bad", "/index.html", "/nonexistent"} {
		first := get(engine, target)
		for i := 0; i < 5; i++ {
			rr := get(engine, target)
			assert.Equal(t, first.Code, rr.Code, target)
			assert.Equal(t, first.Body.Bytes(), rr.Body.Bytes(), target)
		}
	}
}

func TestValidate(t *testing.T) {
	ok := func(c *gin.Context) {}

	testCases := []struct {
		name     string
		table    *Table
		conflict bool
		invalid  bool
	}{
		{
			name:  "正常なテーブル",
			table: NewTable().Nest("/-", BuildAPIRoutes()).Nest("/wasm", BuildWasmRoutes(".")).Nest("/", BuildStaticRoutes(".")),
		},
		{
			name:     "同じプレフィックス",
			table:    NewTable().Nest("/-", BuildAPIRoutes()).Nest("/-", BuildWasmRoutes(".")),
			conflict: true,
		},
		{
			name:     "入れ子のプレフィックス",
			table:    NewTable().Nest("/wasm", BuildWasmRoutes(".")).Nest("/wasm/api", BuildAPIRoutes()),
			conflict: true,
		},
		{
			name:  "前方一致だけのプレフィックス",
			table: NewTable().Nest("/wasm", BuildWasmRoutes(".")).Nest("/wasmx", BuildAPIRoutes()),
		},
		{
			name:     "ルートへのマウントが複数",
			table:    NewTable().Nest("/", BuildStaticRoutes(".")).Nest("/", BuildStaticRoutes(".")),
			conflict: true,
		},
		{
			name:     "ルートとマウントの衝突",
			table:    NewTable().GET("/wasm/app.wasm", ok).Nest("/wasm", BuildWasmRoutes(".")),
			conflict: true,
		},
		{
			name:     "重複したルート",
			table:    NewTable().GET("/healthz", ok).GET("/healthz", ok),
			conflict: true,
		},
		{
			name:     "静的配信とルートの共存",
			table:    NewTable().Nest("/wasm", BuildWasmRoutes(".").GET("/x", ok)),
			conflict: true,
		},
		{
			name:    "スラッシュなしのプレフィックス",
			table:   NewTable().Nest("api", BuildAPIRoutes()),
			invalid: true,
		},
		{
			name:    "ハンドラなし",
			table:   NewTable().GET("/healthz", nil),
			invalid: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.table.Validate()
			switch {
			case tc.conflict:
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMountConflict), "got %v", err)
			case tc.invalid:
				require.Error(t, err)
				assert.False(t, errors.Is(err, ErrMountConflict), "got %v", err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildRootRouterConflict(t *testing.T) {
	assets := testAssets(t)
	assets.WasmPrefix = assets.APIPrefix

	_, err := BuildRootRouter(assets)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMountConflict))
}

// TestNestedInstall は深い階層のマウントが正しいパスに登録されることをテストする
func TestNestedInstall(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "v1.txt", "version one")

	table := NewTable().Nest("/api", NewTable().
		Nest("/v1", BuildAPIRoutes()).
		Nest("/docs", BuildStaticRoutes(dir)))
	engine := newEngine(t, table)

	rr := get(engine, "/api/v1/hello")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Hello, World!", rr.Body.String())

	rr = get(engine, "/api/docs/v1.txt")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "version one", rr.Body.String())

	// ルートに静的配信がないので既定の 404
	rr = get(engine, "/other")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
