package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"docflow/state"
	"docflow/story"
)

// editors often save in several steps, wait for things to settle
const watchDelay = 300 * time.Millisecond

// Watch is watch command action: it builds story file and rebuilds it every
// time file changes until interrupted.
func Watch(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("watch")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no story file has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = filepath.Dir(src)
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}

	if err := prepareEnv(ctx, cmd, log); err != nil {
		return err
	}
	// every rebuild replaces previous result
	env.Overwrite, env.NoDirs = true, true

	log.Info("Watching story", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", env.Format))
	return watch(ctx, src, dst, watchDelay, log, nil)
}

// watch rebuilds src on every change, done (when not nil) is called after
// each build attempt. Returns nil when ctx is canceled.
func watch(ctx context.Context, src, dst string, delay time.Duration, log *zap.Logger, done func(string, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create file watcher: %w", err)
	}
	defer w.Close()

	// watching directory survives editors replacing the file
	if err := w.Add(filepath.Dir(src)); err != nil {
		return fmt.Errorf("unable to watch %s: %w", filepath.Dir(src), err)
	}

	rebuild := func() {
		out, err := rebuildFile(ctx, src, dst, log)
		if err != nil {
			log.Error("Unable to build story", zap.String("file", src), zap.Error(err))
		}
		if done != nil {
			done(out, err)
		}
	}
	rebuild()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Watching stopped", zap.String("file", src))
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != src || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug("Story changed", zap.Stringer("op", ev.Op))
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("File watcher problem", zap.Error(err))
		case <-fire:
			fire = nil
			rebuild()
		}
	}
}

func rebuildFile(ctx context.Context, src, dst string, log *zap.Logger) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", err
	}
	isStory, enc, err := story.IsStoryFile(src)
	if err != nil {
		return "", fmt.Errorf("unable to check file type: %w", err)
	}
	if !isStory {
		return "", fmt.Errorf("input was not recognized as story (%s)", src)
	}
	file, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return processStory(ctx, story.SelectReader(file, enc), filepath.Base(src), dst, log)
}
