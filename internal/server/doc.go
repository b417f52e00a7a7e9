// Package server は、HTTPサーバーとリクエストのディスパッチを管理します。
//
// このパッケージは、ルーティングテーブルを gin エンジンに組み込み、
// 観測用のミドルウェアで包んでリクエストを処理します。
//
// 責務:
//   - HTTPサーバーの起動とグレースフルシャットダウン
//   - リクエストの受信とレスポンスの記録
//   - ハンドラのパニックを 500 レスポンスに変換
//
// 仕様:
//   - ルーティングは gin-gonic/gin を使用
//   - ログは hashicorp/go-hclog を使用
//   - バインドに失敗した場合は起動時にエラーを返す
//   - 複数クライアントの同時接続をサポート
package server
