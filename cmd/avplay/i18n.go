// Package main provides localization for the avplay CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Play a video file or stream with synchronized audio": "映像と音声を同期して再生",
		"avplay decodes a media file on a background worker and plays it in the terminal. " +
			"LOCATOR is an MP4 file path or synth: for a built-in test pattern.": "avplayはバックグラウンドでメディアをデコードし、ターミナルで再生します。" +
			"LOCATORにはMP4ファイルのパス、または組み込みテストパターン用の synth: を指定します。",

		// Flags
		"Config file (default: $XDG_CONFIG_HOME/avplay/config.yaml)":    "設定ファイル（デフォルト: $XDG_CONFIG_HOME/avplay/config.yaml）",
		"Log level (debug, info, warn, error)":                          "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                                       "全てのログ出力を抑制",
		"Path to the ffmpeg executable used to decode compressed media": "圧縮メディアのデコードに使うffmpeg実行ファイルのパス",
		"Video output (terminal, png, null)":                            "映像出力（terminal, png, null）",
		"Audio output (speaker, null)":                                  "音声出力（speaker, null）",
		"Quit when playback reaches the end of the input":               "入力の終端に達したら終了",
		"Write the playback summary to a file":                          "再生サマリーをファイルに出力",

		// Errors
		"Error: %s": "エラー: %s",
		"exactly one LOCATOR argument is required": "LOCATOR引数を1つだけ指定してください",

		// Summary content
		"Playback Summary": "再生サマリー",
		"Source":           "ソース",
		"Video":            "映像",
		"Audio":            "音声",
		"Duration":         "再生時間",
		"Position":         "再生位置",
		"Wall time":        "経過時間",
		"Frames presented": "表示フレーム数",
		"Frames dropped":   "破棄フレーム数",
		"Seeks":            "シーク回数",
		"failed":           "失敗",
		"Audio played":     "再生した音声",
		"Audio underruns":  "音声アンダーラン",
		"Exit":             "終了理由",

		// Exit reasons
		"quit":          "ユーザー操作",
		"end of stream": "ストリーム終端",
		"interrupted":   "中断",
		"worker error":  "ワーカーエラー",
		"stopped":       "停止",
	})
}
