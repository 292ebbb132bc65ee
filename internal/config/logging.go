package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging configures the global zerolog logger from the Log section.
func (cfg *Config) SetupLogging(out *os.File) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = out
	if cfg.Log.Format != "json" {
		w = ConsoleWriter(out)
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ConsoleWriter returns a human readable zerolog writer, coloured only on a terminal.
func ConsoleWriter(f *os.File) io.Writer {
	noColor := !isatty.IsTerminal(f.Fd())

	w := zerolog.ConsoleWriter{Out: f, NoColor: noColor, TimeFormat: time.DateTime}
	w.FormatPrepare = func(m map[string]any) error {
		// [GET] https://api.mangadex.org/manga | 200
		if sys, ok := m["sys"]; ok && sys == "http" && m["status_code"] != nil {
			m["message"] = fmt.Sprintf("[%s] %s | %v", m["method"], m["url"], m["status_code"])
			for _, k := range []string{"sys", "method", "url", "status_code", "request_id"} {
				delete(m, k)
			}
		}
		return nil
	}
	return w
}
