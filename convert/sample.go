package convert

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"docflow/state"
	"docflow/story"
)

// Sample is sample command action, it writes cascading headings story.
func Sample(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	levels := int(cmd.Int("levels"))
	if levels < 1 {
		return fmt.Errorf("number of levels must be positive, got %d", levels)
	}

	data, err := story.Cascade(levels).Encode()
	if err != nil {
		return fmt.Errorf("unable to prepare sample story: %w", err)
	}

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return fmt.Errorf("unable to write sample story '%s': %w", fname, err)
	}
	env.Log.Info("Sample story written", zap.String("file", fname), zap.Int("levels", levels))
	return nil
}
