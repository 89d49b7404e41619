// Package catalog loads chapter definitions for a class.
//
// A catalog source publishes a manifest (ordered chapter ids per class) and
// one definition document per chapter. Two sources exist:
//
//   - DirLoader reads a local directory:
//
//     catalog/
//     manifest.yaml          classes: { tcs: [C1, C2] }
//     chapters/C1.yaml       YAML, JSON or CUE documents
//     chapters/C2.cue
//
//   - HTTPLoader fetches <base>/manifest.json and <base>/chapters/<id>.json,
//     chapter documents in parallel.
//
// Loading is all-or-nothing: any fetch, parse or validation failure fails
// the whole load, so the reconciler never sees a partial catalog.
package catalog
