package router

import (
	"io/fs"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// notFoundBody は静的配信で該当がなかった場合の本文
const notFoundBody = "404 page not found"

// StaticMount はディスク上のディレクトリを配信するマウント
type StaticMount struct {
	Dir string // 配信するディレクトリ

	// Header は全レスポンスに付与するヘッダー
	Header http.Header

	// ContentTypes は拡張子ごとに固定する Content-Type
	ContentTypes map[string]string
}

// noListingFS は index.html のないディレクトリを存在しないものとして扱う
type noListingFS struct {
	http.FileSystem
}

func (nfs noListingFS) Open(name string) (http.File, error) {
	f, err := nfs.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !stat.IsDir() {
		return f, nil
	}

	index, err := nfs.FileSystem.Open(path.Join(name, "index.html"))
	if err != nil {
		f.Close()
		return nil, fs.ErrNotExist
	}
	index.Close()

	return f, nil
}

// handler はプレフィックスを取り除いてディレクトリ配下のファイルを返すハンドラを作成する
func (m *StaticMount) handler(prefix string) gin.HandlerFunc {
	if prefix == RootPrefix {
		prefix = ""
	}
	files := http.StripPrefix(prefix, http.FileServer(noListingFS{http.Dir(m.Dir)}))

	return func(c *gin.Context) {
		header := c.Writer.Header()
		for key, values := range m.Header {
			for _, v := range values {
				header.Add(key, v)
			}
		}
		if ct, ok := m.ContentTypes[path.Ext(c.Request.URL.Path)]; ok {
			header.Set("Content-Type", ct)
		}

		files.ServeHTTP(c.Writer, c.Request)
	}
}

// fallback はどのルートにも一致しなかったリクエストを処理するハンドラを作成する
// claimed 配下のパスは他のマウントの持ち物なのでディスクを参照せずに 404 を返す
func (m *StaticMount) fallback(claimed []string) gin.HandlerFunc {
	serve := m.handler(RootPrefix)

	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodGet && method != http.MethodHead {
			c.String(http.StatusNotFound, notFoundBody)
			return
		}

		// FileServer と同じ正規化をしてから判定する
		p := path.Clean("/" + c.Request.URL.Path)
		for _, prefix := range claimed {
			if under(p, prefix) {
				c.String(http.StatusNotFound, notFoundBody)
				return
			}
		}

		serve(c)
	}
}
