// Package cnsf is the composition root for CNSF note tooling.
//
// A CNSF note is a markdown file with an ordered YAML front matter block
// and two required sections, "# front_md" and "# back_md". The module keeps
// such notes canonical, extracts revised answers from reviewed corpus
// documents, merges them into tabular exports, and reconciles the result
// with an AnkiConnect store.
//
// Features:
//
//   - **Canonical front matter**: deterministic key order, enumerated legacy
//     migrations and schema checks (`pkg/canon`).
//   - **AFTER-block extraction**: markdown and HTML corpus documents
//     (`pkg/revision`), merged by note_id (`pkg/merge`).
//   - **Idempotent sync**: create, update or adopt remote notes with an
//     append-only identity mapping (`pkg/reconcile`, `pkg/idmap`).
//   - **Pluggable rendering**: goldmark built in, MultiMarkdown and Pandoc
//     through their executables (`pkg/render`).
//
// Usage:
//
//	ws, err := cnsf.Open(".", cnsf.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	paths, _ := ws.Repository().List(ctx)
//	report, err := ws.Canonicalizer().Check(ctx, paths)
package cnsf
