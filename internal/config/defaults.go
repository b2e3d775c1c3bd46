package config

import "github.com/forPelevin/ycsp/internal/ports/adapters/ytdlp"

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Output:   "./resources",
		Language: "en",
		Alphabet: "hangul",
		Workers:  1,
		Tools: Tools{
			YtDlp:   "yt-dlp",
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			Format:  ytdlp.DefaultFormat,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
