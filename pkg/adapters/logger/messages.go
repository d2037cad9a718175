package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session (controller component)
		"Playing %s":                    "%s を再生中",
		"Playback finished: %s":         "再生を終了しました: %s",
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",
		"Loaded config from %s":         "%s から設定を読み込みました",
		"Audio output: %s":              "音声出力: %s",
		"Released %d video and %d audio frames at shutdown": "終了時に映像 %d フレーム、音声 %d フレームを解放しました",
		"Resized to %dx%d, viewport %dx%d at %d,%d":         "%dx%d にリサイズ、表示領域 %dx%d (%d,%d)",
		"Failed to scale frame at %d ms: %v":                "%d ms のフレームの拡縮に失敗しました: %v",
		"Failed to present frame at %d ms: %v":              "%d ms のフレームの表示に失敗しました: %v",
		"Failed to restore output: %v":                      "出力の復元に失敗しました: %v",

		// Controls
		"Paused at %s":  "%s で一時停止",
		"Resumed":       "再開しました",
		"Volume %d%%":   "音量 %d%%",
		"Muted":         "ミュートしました",
		"Unmuted":       "ミュートを解除しました",
		"Seeking to %s": "%s へシーク中",
		"Seek to %d ms abandoned, pipeline is shutting down": "%d ms へのシークを中止しました (パイプライン終了中)",

		// Decode worker
		"Seek to %d ms failed: %v":                         "%d ms へのシークに失敗しました: %v",
		"Seek to %d ms flushed %d video and %d audio frames": "%d ms へのシークで映像 %d フレーム、音声 %d フレームを破棄しました",
		"End of stream reached, idling":                    "ストリームの終端に達しました。待機中",
		"Decode worker stopped: %v":                        "デコードワーカーが停止しました: %v",

		// Audio feeder
		"Audio conversion failed: %v":                       "音声の変換に失敗しました: %v",
		"Audio chunk of %d bytes exceeded the carry buffer": "%d バイトの音声チャンクが繰越バッファを超えました",

		// Sources and decoders
		"Opened %s: %s": "%s を開きました: %s",
		"Skipping %s track with unsupported codec %s": "未対応コーデック %[2]s の %[1]s トラックをスキップします",
		"Started ffmpeg for %s":                       "%s 用に ffmpeg を起動しました",

		// Summary
		"Summary saved to %s":         "サマリーを %s に保存しました",
		"Failed to write summary: %v": "サマリーの書き込みに失敗しました: %v",
		"Failed to print summary: %v": "サマリーの出力に失敗しました: %v",
	})
}
