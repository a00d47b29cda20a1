package metisgit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/steveyegge/metis/internal/metisdoc"
)

// probedBranches is the order in which Fetch resolves the remote's
// default branch when no explicit ref is configured: try main, then
// master, then fall back to whatever single branch exists.
var probedBranches = []string{"main", "master"}

// Fetch fetches refs/heads/* from origin using the authentication
// chain and resolves the remote's default branch. It returns
// (hash, true) on success, (zero, false) if the remote has no
// commits, and a metisdoc.ErrAuth or metisdoc.ErrFetchFailed error on
// failure.
func (c *SyncContext) Fetch() (plumbing.Hash, bool, error) {
	if err := ensureOpen(c); err != nil {
		return plumbing.ZeroHash, false, err
	}

	remote, err := c.repo.Remote("origin")
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("%w: %v", metisdoc.ErrFetchFailed, err)
	}

	chain := newAuthChain()
	var fetchErr error
	for {
		auth, authErr := chain.forRemote(c.remoteURL)
		if authErr != nil {
			return plumbing.ZeroHash, false, authErr
		}

		fetchErr = remote.Fetch(&git.FetchOptions{
			RefSpecs: []config.RefSpec{"refs/heads/*:refs/remotes/origin/*"},
			Auth:     auth,
			Tags:     git.NoTags,
		})

		if fetchErr == nil || errors.Is(fetchErr, git.NoErrAlreadyUpToDate) {
			fetchErr = nil
			break
		}
		if errors.Is(fetchErr, transport.ErrEmptyRemoteRepository) {
			return plumbing.ZeroHash, false, nil
		}
		if isAuthFailure(fetchErr) {
			continue // let the chain advance to the next credential
		}
		return plumbing.ZeroHash, false, fmt.Errorf("%w: %v", metisdoc.ErrFetchFailed, fetchErr)
	}

	head, ok, err := c.resolveRemoteHead()
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("%w: %v", metisdoc.ErrFetchFailed, err)
	}
	if !ok {
		return plumbing.ZeroHash, false, nil
	}
	c.fetchedHead = &head
	c.logger.Printf("fetched head %s for prefix %s", head, c.prefix)
	return head, true, nil
}

// resolveRemoteHead probes main, then master, then any single branch
// under refs/remotes/origin/*.
func (c *SyncContext) resolveRemoteHead() (plumbing.Hash, bool, error) {
	for _, name := range probedBranches {
		ref, err := c.repo.Reference(plumbing.NewRemoteReferenceName("origin", name), true)
		if err == nil {
			c.branchName = name
			return ref.Hash(), true, nil
		}
	}

	refs, err := c.repo.References()
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	defer refs.Close()

	var found *plumbing.Reference
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		if !strings.HasPrefix(ref.Name().String(), "refs/remotes/origin/") {
			return nil
		}
		if found != nil {
			return nil // keep the first one found; ambiguity is not an error here
		}
		found = ref
		return nil
	})
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	if found == nil {
		return plumbing.ZeroHash, false, nil
	}
	c.branchName = strings.TrimPrefix(found.Name().String(), "refs/remotes/origin/")
	return found.Hash(), true, nil
}

func isAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authentication") || strings.Contains(msg, "permission denied")
}
