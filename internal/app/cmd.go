package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はBFFサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションの掃除ワーカーとして起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はセッションテーブルのマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch Command(args[0]) {
	case CommandWorker, CommandMigrate, CommandHealthcheck:
		return Command(args[0])
	default:
		return CommandServe
	}
}
