package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// ErrMountConflict はマウント同士が衝突している場合のエラー
var ErrMountConflict = errors.New("マウントが衝突しています")

// RootPrefix はサブツリーをルートにマウントする際のプレフィックス
const RootPrefix = "/"

// Route はHTTPメソッド・パス・ハンドラの組
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// mount はプレフィックスとサブテーブルの組
type mount struct {
	prefix string
	table  *Table
}

// Table はルーティングツリーの一つのノード
//
// 起動時に一度だけ組み立て、Install した後は変更しない。
// 複数のリクエストから同時に参照されるが、読み取り専用のため同期は不要。
type Table struct {
	routes []Route
	mounts []mount
	static *StaticMount
}

// NewTable は空のルーティングテーブルを作成する
func NewTable() *Table {
	return &Table{}
}

// Handle はルートを登録する
func (t *Table) Handle(method, path string, handler gin.HandlerFunc) *Table {
	t.routes = append(t.routes, Route{Method: method, Path: path, Handler: handler})
	return t
}

// GET は GET ルートと同じハンドラの HEAD ルートを登録する
func (t *Table) GET(path string, handler gin.HandlerFunc) *Table {
	return t.Handle(http.MethodGet, path, handler).Handle(http.MethodHead, path, handler)
}

// Nest はサブテーブルをプレフィックス配下にマウントする
// 登録順が優先順位となり、RootPrefix へのマウントは最後に評価される
func (t *Table) Nest(prefix string, sub *Table) *Table {
	t.mounts = append(t.mounts, mount{prefix: prefix, table: sub})
	return t
}

// Serve はテーブル配下のパスをディレクトリから配信する
func (t *Table) Serve(static *StaticMount) *Table {
	t.static = static
	return t
}

// Routes は登録済みのルートを返す
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Validate はテーブル全体でマウントやルートが衝突していないかを検証する
func (t *Table) Validate() error {
	return t.validate(RootPrefix)
}

func (t *Table) validate(base string) error {
	seenRoutes := make(map[string]struct{}, len(t.routes))
	for _, r := range t.routes {
		if !strings.HasPrefix(r.Path, "/") {
			return errors.Errorf("ルートのパスは / で始まる必要があります: %q", r.Path)
		}
		if r.Handler == nil {
			return errors.Errorf("ハンドラが未設定です: %s %s", r.Method, r.Path)
		}
		key := r.Method + " " + r.Path
		if _, ok := seenRoutes[key]; ok {
			return errors.Wrapf(ErrMountConflict, "ルート %s が重複しています", key)
		}
		seenRoutes[key] = struct{}{}
	}

	rootMounts := 0
	for i, m := range t.mounts {
		if m.table == nil {
			return errors.Errorf("プレフィックス %q のテーブルが未設定です", m.prefix)
		}
		if err := checkPrefix(m.prefix); err != nil {
			return err
		}
		if m.prefix == RootPrefix {
			rootMounts++
			if rootMounts > 1 || (t.static != nil && base == RootPrefix) {
				return errors.Wrap(ErrMountConflict, "ルートへのマウントが複数あります")
			}
		}

		for _, other := range t.mounts[:i] {
			if overlaps(m.prefix, other.prefix) {
				return errors.Wrapf(ErrMountConflict, "%s と %s", other.prefix, m.prefix)
			}
		}
		for _, r := range t.routes {
			if overlaps(m.prefix, r.Path) {
				return errors.Wrapf(ErrMountConflict, "%s とルート %s", m.prefix, r.Path)
			}
		}

		if err := m.table.validate(join(base, m.prefix)); err != nil {
			return err
		}
	}

	// ルート以外の位置での静的配信はサブツリー全体を占有する
	if t.static != nil && base != RootPrefix && (len(t.routes) > 0 || len(t.mounts) > 0) {
		return errors.Wrapf(ErrMountConflict, "%s の静的配信が他のルートと共存しています", base)
	}

	return nil
}

// claimed はルート以外にマウントされたプレフィックスを全て返す
func (t *Table) claimed(base string) []string {
	var prefixes []string
	for _, m := range t.mounts {
		full := join(base, m.prefix)
		if m.prefix != RootPrefix {
			prefixes = append(prefixes, full)
		}
		prefixes = append(prefixes, m.table.claimed(full)...)
	}
	return prefixes
}

// Install はテーブルを gin エンジンに登録する
// ルートにマウントされた静的配信は NoRoute として登録され、
// 他のどのマウントにも一致しないリクエストだけを受け持つ
func (t *Table) Install(engine *gin.Engine) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.install(engine, &engine.RouterGroup, t.claimed(RootPrefix))
	return nil
}

func (t *Table) install(engine *gin.Engine, group *gin.RouterGroup, claimed []string) {
	for _, r := range t.routes {
		group.Handle(r.Method, r.Path, r.Handler)
	}

	for _, m := range t.mounts {
		sub := group
		if m.prefix != RootPrefix {
			sub = group.Group(m.prefix)
		}
		m.table.install(engine, sub, claimed)
	}

	if t.static == nil {
		return
	}
	if group.BasePath() == RootPrefix {
		engine.NoRoute(t.static.fallback(claimed))
		return
	}
	h := t.static.handler(group.BasePath())
	group.GET("/*filepath", h)
	group.HEAD("/*filepath", h)
}

func checkPrefix(prefix string) error {
	if !strings.HasPrefix(prefix, "/") {
		return errors.Errorf("プレフィックスは / で始まる必要があります: %q", prefix)
	}
	if prefix != RootPrefix && strings.HasSuffix(prefix, "/") {
		return errors.Errorf("プレフィックスの末尾に / は不要です: %q", prefix)
	}
	return nil
}

// overlaps は二つのパスの一方が他方と一致するか、その配下にあるかを判定する
func overlaps(a, b string) bool {
	if a == RootPrefix || b == RootPrefix {
		return false
	}
	return under(a, b) || under(b, a)
}

// under は path が prefix と一致するか、その配下にあるかを判定する
func under(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func join(base, prefix string) string {
	switch {
	case prefix == RootPrefix:
		return base
	case base == RootPrefix:
		return prefix
	default:
		return base + prefix
	}
}
