// Package state holds per-run program state carried in context.
package state

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"docflow/common"
	"docflow/config"
	"docflow/layout/flow"
)

type envKey struct{}

// LocalEnv is shared by all subcommands of a single run.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report // nil unless --debug
	Log *zap.Logger

	// set from build and watch flags
	Format    common.OutputFmt
	NoDirs    bool
	Overwrite bool
	CodePage  encoding.Encoding
	// Ornament is SVG drawn on every page, read once per run.
	Ornament []byte

	fontsOnce sync.Once
	fonts     *flow.Fonts

	start         time.Time
	restoreStdLog func()
}

// EnvFromContext panics when ctx was not prepared with ContextWithEnv.
func EnvFromContext(ctx context.Context) *LocalEnv {
	env, ok := ctx.Value(envKey{}).(*LocalEnv)
	if !ok {
		panic("program environment is missing from context")
	}
	return env
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

// Doc returns document section of active configuration.
func (e *LocalEnv) Doc() *config.DocumentConfig {
	return &e.Cfg.Document
}

// Fonts returns font cache used by every story built during the run, so
// watch rebuilds and directory walks parse faces once.
func (e *LocalEnv) Fonts() *flow.Fonts {
	e.fontsOnce.Do(func() {
		e.fonts = flow.NewFonts()
	})
	return e.fonts
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// RedirectStdLog sends output of standard log package to zap logger.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log != nil {
		e.restoreStdLog = zap.RedirectStdLog(e.Log)
	}
}

// RestoreStdLog syncs logger and undoes RedirectStdLog.
func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
		e.restoreStdLog = nil
	}
}
