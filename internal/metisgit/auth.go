package metisgit

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/steveyegge/metis/internal/metisdoc"
)

// maxAuthAttempts bounds the authentication chain: after this many
// credential requests within one fetch or push, the chain surrenders
// with an auth error rather than prompting indefinitely.
const maxAuthAttempts = 10

// candidateKeyFiles are tried, in order, after ssh-agent fails.
var candidateKeyFiles = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

// authChain builds the stateful credential callback used across a
// single fetch or push. Attempt 0 is the default: no auth at all,
// which is what local paths, file:// remotes, and already-open
// anonymous transports need. Only once that default is rejected by
// the transport with an auth-required error does the chain escalate:
// attempt 1 tries ssh-agent (ssh remotes) or the git credential helper
// (everything else); attempts 2..N rotate through candidate private
// key files under the user's home directory for ssh remotes.
type authChain struct {
	attempts int
}

func newAuthChain() *authChain {
	return &authChain{}
}

// forRemote selects a transport.AuthMethod for remoteURL, advancing
// the chain's internal attempt counter. It returns metisdoc-flavored
// errors only at the point the chain is exhausted; transient
// per-attempt failures are expected to be retried by the caller
// against the transport's own error, not this function.
func (a *authChain) forRemote(remoteURL string) (transport.AuthMethod, error) {
	if a.attempts >= maxAuthAttempts {
		return nil, fmt.Errorf("%w: authentication chain exhausted after %d attempts", metisdoc.ErrAuth, a.attempts)
	}
	attempt := a.attempts
	a.attempts++

	if attempt == 0 {
		return nil, nil
	}

	if isSSHRemote(remoteURL) {
		if attempt == 1 {
			if auth, err := ssh.NewSSHAgentAuth("git"); err == nil {
				return auth, nil
			}
			attempt++
		}
		for ; attempt-2 < len(candidateKeyFiles); attempt++ {
			if keyAuth, ok := tryCandidateKeyFile(attempt); ok {
				a.attempts = attempt + 1
				return keyAuth, nil
			}
		}
		return nil, fmt.Errorf("%w: no ssh-agent and no usable key file for attempt %d", metisdoc.ErrAuth, attempt)
	}

	// https/http remotes: delegate to the user's configured git
	// credential helper.
	if user, pass, err := credentialHelperFill(remoteURL); err == nil {
		return &http.BasicAuth{Username: user, Password: pass}, nil
	}
	return nil, fmt.Errorf("%w: credential helper produced no usable credentials", metisdoc.ErrAuth)
}

func isSSHRemote(url string) bool {
	return strings.HasPrefix(url, "ssh://") || strings.Contains(url, "@") && strings.Contains(url, ":") && !strings.HasPrefix(url, "http")
}

// tryCandidateKeyFile maps attempt 2, 3, 4 onto the three candidate
// key basenames (ed25519, rsa, ecdsa), skipping files that don't
// exist. attempt 0 is the no-auth default and attempt 1 is ssh-agent;
// neither is ever passed here.
func tryCandidateKeyFile(attempt int) (transport.AuthMethod, bool) {
	idx := attempt - 2
	if idx < 0 || idx >= len(candidateKeyFiles) {
		return nil, false
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, false
	}
	path := filepath.Join(home, ".ssh", candidateKeyFiles[idx])
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}
	auth, err := ssh.NewPublicKeysFromFile("git", path, "")
	if err != nil {
		return nil, false
	}
	return auth, true
}

// credentialHelperFill shells out to `git credential fill`, the same
// escape hatch the rest of this module's git plumbing uses wherever
// go-git doesn't expose an equivalent.
func credentialHelperFill(remoteURL string) (user, pass string, err error) {
	cmd := exec.Command("git", "credential", "fill")
	cmd.Stdin = strings.NewReader(fmt.Sprintf("url=%s\n\n", remoteURL))
	out, err := cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("git credential fill: %w", err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "username="):
			user = strings.TrimPrefix(line, "username=")
		case strings.HasPrefix(line, "password="):
			pass = strings.TrimPrefix(line, "password=")
		}
	}
	if user == "" && pass == "" {
		return "", "", fmt.Errorf("credential helper returned no credentials")
	}
	return user, pass, nil
}
