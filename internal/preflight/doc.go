// Package preflight provides readiness checks for the paths and external
// services docent depends on.
//
// These checks run in two contexts:
//   - 'docent serve' runs the local checks (directories, free space) at
//     startup and logs failures as warnings without refusing to start.
//   - 'docent status' runs everything, including the vision model ping and
//     the registry sheet fetch, and renders the results as a table.
package preflight
