package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"fusuma/internal/config"
	"fusuma/internal/router"
)

// defaultShutdownTimeout は設定で猶予が指定されていない場合のシャットダウン猶予
const defaultShutdownTimeout = 5 * time.Second

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	logger     hclog.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

// New は新しいServerインスタンスを作成する
// ルーティングテーブルの構築に失敗した場合はエラーを返す
func New(cfg *config.Config, logger hclog.Logger) (*Server, error) {
	configureGin(cfg, logger)

	engine := gin.New()
	engine.Use(Trace(logger), Recovery(logger))

	// ルートを設定
	table, err := router.BuildRootRouter(cfg.Assets)
	if err != nil {
		return nil, err
	}
	if err := table.Install(engine); err != nil {
		return nil, errors.Wrap(err, "ルートの登録に失敗")
	}

	return &Server{
		config: cfg,
		logger: logger,
		engine: engine,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			ErrorLog: logger.StandardLogger(&hclog.StandardLoggerOptions{
				InferLevels: true,
			}),
		},
	}, nil
}

// configureGin は gin のグローバル設定をロガーに合わせる
func configureGin(cfg *config.Config, logger hclog.Logger) {
	gin.SetMode(cfg.Server.Mode)

	debugWriter := logger.StandardWriter(&hclog.StandardLoggerOptions{ForceLevel: hclog.Debug})
	gin.DefaultWriter = debugWriter
	gin.DefaultErrorWriter = logger.StandardWriter(&hclog.StandardLoggerOptions{ForceLevel: hclog.Error})
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, _ int) {
		logger.Debug("ルートを登録しました", "method", httpMethod, "path", absolutePath, "handler", handlerName)
	}
}

// Handler はルーティングとミドルウェアを組み込んだハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start はサーバーを起動する
// アドレスのバインドに失敗した場合はすぐにエラーを返す
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.ServerAddress()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "%s へのバインドに失敗", addr)
	}

	return s.Serve(ctx, listener)
}

// Serve は listener でリクエストを受け付ける
// コンテキストのキャンセルかシグナルの受信でグレースフルシャットダウンする
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.Info("HTTPサーバーを起動しています", "addr", listener.Addr().String())
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- errors.Wrap(err, "サーバーの実行に失敗")
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info("シグナルを受信しました", "signal", sig.String())
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Info("サーバーをシャットダウンしています")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "サーバーのシャットダウンに失敗")
	}

	s.logger.Info("サーバーが正常にシャットダウンされました")
	return nil
}
