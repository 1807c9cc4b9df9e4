package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pdfcpu keeps its configuration in user config directory unless told not to
var disableConfigDir = sync.OnceFunc(api.DisableConfigDir)

// PDFConfiguration is pdfcpu configuration used for both writing and
// inspecting generated files.
func PDFConfiguration() *model.Configuration {
	disableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PDF assembles rasterized pages into PDF document, every image covers the
// whole page of document page size.
func PDF(ctx context.Context, doc *Document, opts Options, w io.Writer) error {
	imgs, err := Rasterize(ctx, doc, opts.Fonts, opts.Raster)
	if err != nil {
		return err
	}
	if len(imgs) == 0 {
		return fmt.Errorf("document has no pages")
	}

	readers := make([]io.Reader, 0, len(imgs))
	for _, img := range imgs {
		data, err := EncodePNG(img)
		if err != nil {
			return err
		}
		readers = append(readers, bytes.NewReader(data))
	}

	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = &types.Dim{Width: doc.PageW, Height: doc.PageH}
	imp.UserDim = true
	imp.Pos = types.Full

	if err := api.ImportImages(nil, w, readers, imp, PDFConfiguration()); err != nil {
		return fmt.Errorf("unable to assemble pdf: %w", err)
	}
	return nil
}

func writePDF(ctx context.Context, doc *Document, dst string, opts Options) error {
	var buf bytes.Buffer
	if err := PDF(ctx, doc, opts, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write pdf file (%s): %w", dst, err)
	}
	return nil
}
