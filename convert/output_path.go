package convert

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"docflow/config"
	"docflow/state"
	"docflow/story"
)

// buildOutputPath returns output file path for story. Name comes either from
// the source file name or from configured name template which may contain
// subdirectories. Source directory structure is kept unless NoDirs is set.
func buildOutputPath(d *story.Doc, src, dst string, env *state.LocalEnv) string {
	outDir := determineOutputDir(src, dst, env)
	ext := env.Format.Ext()

	if tmpl := env.Doc().Output.NameTemplate; tmpl != "" {
		expanded, err := expandTemplate(d, src, config.OutputNameTemplateFieldName, tmpl, env.Format)
		if err != nil {
			env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		} else if segments := splitPath(filepath.FromSlash(expanded)); len(segments) > 0 {
			for i := range segments {
				segments[i] = cleanPathSegment(segments[i], env)
			}
			segments[len(segments)-1] += ext
			return filepath.Join(append([]string{outDir}, segments...)...)
		}
	}

	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(outDir, cleanPathSegment(baseName, env)+ext)
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

// splitPath breaks path into non empty segments.
func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == filepath.Separator || r == '/'
	})
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Doc().Output.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
