// Package ssh wraps the SSH tooling ghswitch relies on.
//
// This package includes:
//   - Private key discovery and public key parsing with fingerprints
//   - SSH agent membership checks, over SSH_AUTH_SOCK or via ssh-add -l
//   - Key generation with ssh-keygen and loading with ssh-add
//   - Connectivity tests against github.com through a host alias
//
// # Keys
//
//	pairs, err := ssh.DiscoverKeyPairs(sshDir)
//	for _, p := range pairs {
//	    if p.Public != nil {
//	        fmt.Println(p.PrivatePath, p.Public.Fingerprint) // SHA256:...
//	    }
//	}
//
// # Tools
//
// External programs run through a runner.CommandRunner, so tests can
// substitute canned output:
//
//	tools := ssh.NewTools(runner.NewExecRunner())
//	if err := tools.GenerateKey(ctx, ssh.KeygenRequest{Path: p, Email: e}); err != nil {
//	    return err
//	}
//	res := tools.TestConnection(ctx, "work")
//	if res.Status == ssh.ConnAuthenticated {
//	    fmt.Println("authenticated as", res.Username)
//	}
package ssh
