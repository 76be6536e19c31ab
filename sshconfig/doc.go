// Package sshconfig rewrites the OpenSSH client config one line at a time.
//
// Only blocks whose Host line is exactly "Host github.com-<alias>" are
// managed. A managed block runs from its Host line up to the next line
// starting with "Host ", or the end of the text. Everything else in the
// file is preserved byte for byte.
//
// Basic usage:
//
//	f := sshconfig.NewFile(path)
//	text, err := f.Load()
//	text = sshconfig.UpsertBlock(text, "work", "/home/me/.ssh/id_work")
//	err = f.Save(text)
package sshconfig
