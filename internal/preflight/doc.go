// Package preflight provides readiness checks for the filesystem paths and
// external tools reelsmith depends on.
//
// These checks run in two contexts:
//   - The build pipeline calls CheckSystemDeps before rendering so a missing
//     renderer or encoder fails fast instead of after minutes of rendering.
//   - The CLI "reelsmith check" command prints every check as a table.
package preflight
