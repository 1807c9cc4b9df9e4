package convert

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docflow/config"
	"docflow/layout"
	"docflow/layout/notify"
	"docflow/layout/style"
	"docflow/layout/toc"
	"docflow/render"
	"docflow/state"
	"docflow/story"
	"docflow/utils/debug"
)

// storyStyles derives all styles from configuration.
func storyStyles(cfg *config.DocumentConfig) story.Styles {
	sc := &cfg.Styles
	reg := style.NewRegistry(sc.Levels, style.Params{
		HeadingFont:     sc.HeadingFont,
		HeadingBaseSize: sc.HeadingBaseSize,
		TOCFont:         sc.TOCFont,
		TOCSize:         sc.TOCSize,
		Delta:           sc.Delta,
		Epsilon:         sc.Epsilon,
	})
	st := story.Styles{
		Registry: reg,
		Body: style.Text{
			FontName:   sc.BodyFont,
			FontSize:   sc.BodySize,
			Leading:    sc.BodySize * 1.2,
			SpaceAfter: sc.BodySize / 2,
		},
		DefaultTOCTitle: cfg.TOC.Title,
	}
	if len(reg.Headings) > 0 {
		st.TOCTitle = reg.Headings[0].Text
	}
	return st
}

// buildStory lays story out according to configuration. Exhausted pass
// budget is reported but output is still produced.
func buildStory(ctx context.Context, d *story.Doc, src string, env *state.LocalEnv, log *zap.Logger) (*render.Document, error) {
	cfg := env.Doc()
	st := storyStyles(cfg)

	flowables, err := d.Flowables(st)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare story (%s): %w", src, err)
	}

	fonts := env.Fonts()
	bus := notify.New(log.Named("notify"))

	setup := layout.PageSetupFromConfig(&cfg.Page, st.Body, env.Ornament)
	setup.Title, setup.Lang = d.Title, d.Lang.String()
	tmpl, err := layout.NewTemplate(setup, bus, fonts, log.Named("template"))
	if err != nil {
		return nil, err
	}

	opts := []layout.Option{
		layout.WithMaxPasses(cfg.TOC.MaxPasses),
		layout.WithMeasurer(fonts),
		layout.WithLogger(log.Named("layout")),
	}
	if env.Rpt != nil {
		opts = append(opts, layout.WithObserver(passRecorder(env.Rpt, d.ID)))
	}
	ctrl := layout.NewController(tmpl, toc.NewModel(st.Registry.TocLines, log.Named("toc")), bus, opts...)

	res, err := ctrl.Build(ctx, flowables)
	if err != nil {
		return nil, fmt.Errorf("unable to lay out story (%s): %w", src, err)
	}
	env.Rpt.StoreData(fmt.Sprintf("toc/%s.txt", d.ID), []byte(res.TOC.Dump()))
	if !res.Stable() {
		log.Warn("Table of contents page numbers may be wrong",
			zap.String("story", src), zap.Stringer("state", res.State), zap.Int("passes", res.Passes))
	}

	return render.NewDocument(d.ID, d.Title, setup.Lang, src, res, cfg.Page.Width, cfg.Page.Height), nil
}

// passRecorder stores what every layout pass showed and observed in the
// debug report.
func passRecorder(rpt *config.Report, storyID uuid.UUID) func(layout.PassReport) {
	return func(p layout.PassReport) {
		rpt.StoreData(fmt.Sprintf("passes/%s/%s-%02d.txt", storyID, p.BuildID, p.Pass), []byte(dumpPass(p)))
	}
}

func dumpPass(p layout.PassReport) string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "pass %d: %d pages, stable %t, elapsed %s", p.Pass, p.Pages, p.Stable, p.Elapsed)
	tw.Change(1, "entries", len(p.Shown), len(p.Observed))
	for i, l := range p.Observed {
		shown := "-"
		if i < len(p.Shown) {
			shown = fmt.Sprint(p.Shown[i].Page)
		}
		tw.Line(1, "[%d] level %d", i, l.Level)
		tw.TextBlock(2, "text", l.Text)
		tw.Change(2, "page", shown, l.Page)
	}
	return tw.String()
}
