// Package common keeps enums shared by configuration, conversion and command
// line handling so neither has to import the other.
package common

// Specification of requested output type.
// ENUM(svg, png, pdf, txt)
type OutputFmt int

// Raster reports whether pages have to be rasterized for this format.
func (o OutputFmt) Raster() bool {
	return o == OutputFmtPng || o == OutputFmtPdf
}

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtSvg:
		return ".svg.zip"
	case OutputFmtPng:
		return ".png.zip"
	case OutputFmtPdf:
		return ".pdf"
	case OutputFmtTxt:
		return ".txt"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}
