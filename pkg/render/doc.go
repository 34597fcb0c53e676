// Package render turns trial tables into documents.
//
// # Overview
//
// The renderers in the subpackages all produce SVG. This package holds the
// shared SVG helpers and the conversion to other formats:
//
//   - Field maps (in [fieldmap] subpackage)
//   - Fieldbooks, one SVG per page (in [fieldbook] subpackage)
//   - Block adjacency diagrams via Graphviz (in [adjacency] subpackage)
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert any SVG using the external rsvg-convert tool
// (from librsvg). [PagesToPDF] joins several SVG pages into one PDF.
//
//	svg, err := fieldmap.RenderSVG(m)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [fieldmap]: github.com/matzehuels/fieldtrial/pkg/render/fieldmap
// [fieldbook]: github.com/matzehuels/fieldtrial/pkg/render/fieldbook
// [adjacency]: github.com/matzehuels/fieldtrial/pkg/render/adjacency
package render
