// Package backup snapshots the ghswitch state (registry document, SSH
// config and account key files) and restores it.
//
// Each backup is a directory under the backup root:
//
//	<id>/manifest.json
//	<id>/registry.json
//	<id>/ssh_config
//	<id>/keys/<n>_<basename>
//
// Restore always takes a "Before restore" backup of the current state
// first, so a restore can itself be undone.
package backup
