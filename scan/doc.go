// Package scan walks a directory tree for Git repositories and works out
// which managed account, if any, each one is bound to.
//
// Classification reads the origin remote and compares it against an
// account.Snapshot:
//
//	git@github.com-<alias>:owner/repo   bound to alias, or "unrecognized alias"
//	git@github.com:owner/repo           "needs account assignment"
//	https://github.com/owner/repo       owner mapping, or "needs owner mapping"
//	any other host                      "non-GitHub"
//	no origin                           "no remote"
//
// A repository that cannot be read is reported with StatusError and the
// walk continues. Results are never cached; each Scan reads the
// filesystem again.
package scan
