// Package preflight provides readiness checks for the filesystem paths and
// encoder binaries a conversion run depends on.
//
// These checks run in two contexts:
//   - The batch driver calls CheckDirectoryAccess on the output directory
//     before scanning, so an unwritable target fails before any job starts.
//   - The CLI "wavconv check" command runs RunAll and CheckSystemDeps and
//     renders the results as a table.
package preflight
