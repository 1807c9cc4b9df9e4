// Package convert implements build and watch commands: it finds stories in
// files, directories and archives, lays them out and writes requested output.
package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"docflow/archive"
	"docflow/common"
	"docflow/render"
	"docflow/state"
	"docflow/story"
)

// Run is build command action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if err := prepareEnv(ctx, cmd, log); err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", env.Format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// prepareEnv moves command line flags shared by build and watch into the
// environment.
func prepareEnv(ctx context.Context, cmd *cli.Command, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)

	env.Format = env.Doc().Output.Format
	if to := cmd.String("to"); len(to) > 0 {
		if env.Format, err = common.ParseOutputFmt(to); err != nil {
			log.Warn("Unknown output format requested, switching to configured one",
				zap.String("requested", to), zap.Stringer("format", env.Doc().Output.Format), zap.Error(err))
			env.Format = env.Doc().Output.Format
		}
	}

	if p := env.Doc().Page.OrnamentPath; p != "" {
		if env.Ornament, err = os.ReadFile(p); err != nil {
			return fmt.Errorf("unable to read page ornament from %q: %w", p, err)
		}
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}
	return nil
}

// process determines input type (directory, archive with optional path
// inside, or single story file) and builds everything it finds.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := story.IsArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := processArchive(ctx, head, filepath.ToSlash(tail), "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		isStory, enc, err := story.IsStoryFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if isStory && len(tail) == 0 {
			if err := processFile(ctx, head, filepath.Base(head), enc, dst, log); err != nil {
				log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
			}
			break
		}
		return fmt.Errorf("input was not recognized as story (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

func processFile(ctx context.Context, path, src string, enc story.Encoding, dst string, log *zap.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = processStory(ctx, story.SelectReader(file, enc), src, dst, log)
	return err
}

// processDir builds every story found under dir. Directory entries are
// visited in natural order, symbolic links are not followed.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	return walkNatural(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		isArchive, err := story.IsArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if isArchive {
			if err := processArchive(ctx, path, "", filepath.Dir(strings.TrimPrefix(path, dir)), dst, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			return nil
		}

		isStory, enc, err := story.IsStoryFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !isStory {
			log.Debug("Skipping file, not recognized as story or archive", zap.String("file", path))
			return nil
		}

		count++

		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := processFile(ctx, path, src, enc, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
}

// walkNatural is filepath.WalkDir with entries of every directory sorted in
// natural order, so "part2" is built before "part10".
func walkNatural(root string, fn fs.WalkDirFunc) error {
	info, err := os.Lstat(root)
	if err != nil {
		return fn(root, nil, err)
	}
	err = walkDir(root, fs.FileInfoToDirEntry(info), fn)
	if errors.Is(err, filepath.SkipDir) || errors.Is(err, filepath.SkipAll) {
		return nil
	}
	return err
}

func walkDir(path string, d fs.DirEntry, fn fs.WalkDirFunc) error {
	if err := fn(path, d, nil); err != nil || !d.IsDir() {
		if errors.Is(err, filepath.SkipDir) && d.IsDir() {
			err = nil
		}
		return err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if err = fn(path, d, err); err != nil {
			if errors.Is(err, filepath.SkipDir) {
				err = nil
			}
			return err
		}
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		switch {
		case natural.Less(a.Name(), b.Name()):
			return -1
		case natural.Less(b.Name(), a.Name()):
			return 1
		}
		return 0
	})

	for _, e := range entries {
		if err := walkDir(filepath.Join(path, e.Name()), e, fn); err != nil {
			if errors.Is(err, filepath.SkipDir) {
				break
			}
			return err
		}
	}
	return nil
}

// processArchive builds all stories inside archive under "pathIn".
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	return archive.Walk(path, pathIn, func(archive string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		isStory, enc, err := story.IsStoryInArchive(f)
		if err != nil {
			log.Warn("Skipping file in archive",
				zap.String("archive", archive), zap.String("path", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		if !isStory {
			log.Debug("Skipping file, not recognized as story", zap.String("archive", archive), zap.String("file", f.FileHeader.Name))
			return nil
		}

		count++

		r, err := f.Open()
		if err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		cp := state.EnvFromContext(ctx).CodePage

		pathInArchive := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}
		if _, err := processStory(ctx, story.SelectReader(r, enc), filepath.Join(pathOut, pathInArchive), dst, log); err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name), zap.Error(err))
		}
		return nil
	})
}

// processStory builds single story. "src" is source path relative to what
// was requested on the command line (base name for a single file), "dst" is
// destination directory. Returns name of the produced file.
func processStory(ctx context.Context, r io.Reader, src, dst string, log *zap.Logger) (outputName string, rerr error) {
	env := state.EnvFromContext(ctx)

	var storyID string

	log.Info("Build starting", zap.String("from", src))
	defer func(start time.Time) {
		// a broken story must not stop processing of the rest of the batch
		if r := recover(); r != nil {
			log.Error("Build ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("build panic: %v", r)
		} else if rerr == nil {
			log.Info("Build completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.String("story_id", storyID))
		}
	}(time.Now())

	d, err := story.Parse(ctx, r, src, log.Named("story"))
	if err != nil {
		return "", fmt.Errorf("unable to parse story (%s): %w", src, err)
	}
	storyID = d.ID.String()

	outputName = buildOutputPath(d, src, dst, env)

	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return "", fmt.Errorf("output file already exists: %s", outputName)
		}
		// replaced only after successful build
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return "", err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return "", fmt.Errorf("unable to create output directory: %w", err)
	}

	doc, err := buildStory(ctx, d, src, env, log)
	if err != nil {
		return "", err
	}

	opts := render.Options{
		Raster: render.RasterOptions{
			DPI:   env.Doc().Output.Raster.DPI,
			Width: env.Doc().Output.Raster.Width,
		},
		FixZip: env.Doc().Output.FixZip,
		Fonts:  env.Fonts(),
	}
	if err := writeOutput(ctx, doc, outputName, opts, env, log); err != nil {
		return "", err
	}

	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result-%s%s", storyID, env.Format.Ext()), outputName)
	}
	return outputName, nil
}

// writeOutput renders into temporary file next to outputName and renames it
// into place, so existing result survives failed rendering.
func writeOutput(ctx context.Context, doc *render.Document, outputName string, opts render.Options, env *state.LocalEnv, log *zap.Logger) error {
	tmp, err := os.CreateTemp(filepath.Dir(outputName), "."+filepath.Base(outputName)+".*")
	if err != nil {
		return fmt.Errorf("unable to create temporary output: %w", err)
	}
	tmpName := tmp.Name()
	if err := multierr.Append(tmp.Close(), os.Chmod(tmpName, 0644)); err != nil {
		return multierr.Append(fmt.Errorf("unable to create temporary output: %w", err), os.Remove(tmpName))
	}

	if err := render.Write(ctx, doc, env.Format, tmpName, opts, log.Named("render")); err != nil {
		return multierr.Append(fmt.Errorf("unable to generate output: %w", err), os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, outputName); err != nil {
		return multierr.Append(fmt.Errorf("unable to move output into place: %w", err), os.Remove(tmpName))
	}
	return nil
}
