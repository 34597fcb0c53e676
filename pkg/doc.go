// Package pkg holds the fieldtrial libraries.
//
// # Overview
//
// Fieldtrial lays out randomized agricultural field trials. A rectangular
// field is partitioned into a grid of blocks, each block into cells; every
// block gets a subblock type so that no two neighboring blocks share one, and
// every cell is labeled from the type's two entry pools. The result is a
// table of labeled cells with coordinates that can be georeferenced and
// rendered as field maps and fieldbooks.
//
// The pkg directory is organized into these areas:
//
//  1. [field] - Domain logic (geometry, sampling, arrangement, labeling, georeferencing)
//  2. [pipeline] - Orchestration (config, generate, render, cached runner)
//  3. [render] - Field maps, fieldbooks and adjacency diagrams
//  4. [cache] and [store] - Layout cache and run history
//  5. [errors] and [observability] - Coded errors and metric hooks
//
// # Architecture
//
//	trial.toml
//	     ↓
//	[field/geometry]  blocks and cells with coordinates
//	     ↓
//	[field/arrange]   subblock type per block, neighbors differ
//	     ↓
//	[field/sampler] + [field/assign]  entry label per cell
//	     ↓
//	[field/geo]       optional latitude anchor
//	     ↓
//	[field/table]  →  CSV, JSON, SVG, PDF, PNG, DOT
//
// # Quick Start
//
//	opts := pipeline.Options{Name: "North"}.WithSeed(42)
//	res, err := pipeline.Generate(ctx, opts)
//	if err != nil {
//	    return err
//	}
//	err = table.WriteCSVFile(res.Table, "north.csv")
//
// The same seed always yields the same table. Use [pipeline.Runner] to cache
// seeded runs in a [cache.Cache].
//
// [field]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/field
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/pipeline
// [render]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/store
// [errors]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/observability
// [field/geometry]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/field/geometry
// [field/arrange]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/field/arrange
// [field/sampler]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/field/sampler
// [field/assign]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/field/assign
// [field/geo]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/field/geo
// [field/table]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/field/table
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/pipeline#Runner
// [cache.Cache]: https://pkg.go.dev/github.com/matzehuels/fieldtrial/pkg/cache#Cache
package pkg
