// Package validate audits the local SSH and Git setup for the managed
// accounts and repairs the problems that are safe to repair.
//
// ValidateAll runs five independent checks (SSH directory, account keys,
// SSH config, GitHub connectivity, global Git identity). They execute
// concurrently but findings are always returned in the same order, so two
// runs against an unchanged machine produce the same report apart from
// network-dependent connectivity results.
//
// AutoFix only creates or chmods files and loads keys into ssh-agent. It
// never edits the SSH config or the account registry.
package validate
