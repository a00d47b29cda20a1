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

// pushRejectionSubstrings are matched case-insensitively against a
// failed push's error message. This mirrors the substring
// classification the core was distilled from: libgit2-family push
// errors don't carry a single stable sentinel for every rejection
// shape, so the reason string is inspected the same way.
var pushRejectionSubstrings = []string{
	"non-fast-forward",
	"rejected",
	"not present locally",
	"already exists",
	"lock",
}

// Push pushes the detached commit left by CommitUpdate to the
// resolved remote branch. It first points the local branch ref at
// HEAD, then pushes refs/heads/<branch>:refs/heads/<branch>.
//
// Failures are classified: non-fast-forward, ref-lock contention,
// concurrent update, and "object not present locally" all map to
// metisdoc.ErrPushRejected (retriable by the orchestrator).
// Credential failures map to metisdoc.ErrAuth. Anything else is
// wrapped in a *metisdoc.PushFailedError.
func (c *SyncContext) Push() error {
	if err := ensureOpen(c); err != nil {
		return err
	}

	headRef, err := c.repo.Reference(plumbing.HEAD, true)
	if err != nil {
		return &metisdoc.PushFailedError{Reason: fmt.Sprintf("resolve local HEAD: %v", err)}
	}

	branch := c.branchName
	if branch == "" {
		branch = "main"
	}
	branchRefName := plumbing.NewBranchReferenceName(branch)
	if err := c.repo.Storer.SetReference(plumbing.NewHashReference(branchRefName, headRef.Hash())); err != nil {
		return &metisdoc.PushFailedError{Reason: fmt.Sprintf("set local branch ref: %v", err)}
	}

	remote, err := c.repo.Remote("origin")
	if err != nil {
		return &metisdoc.PushFailedError{Reason: fmt.Sprintf("resolve origin remote: %v", err)}
	}

	refSpec := config.RefSpec(fmt.Sprintf("%s:%s", branchRefName, branchRefName))

	chain := newAuthChain()
	for {
		auth, authErr := chain.forRemote(c.remoteURL)
		if authErr != nil {
			return authErr
		}

		err = remote.Push(&git.PushOptions{
			RefSpecs: []config.RefSpec{refSpec},
			Auth:     auth,
		})
		if err == nil || errors.Is(err, git.NoErrAlreadyUpToDate) {
			c.logger.Printf("pushed %s to %s for prefix %s", headRef.Hash(), branch, c.prefix)
			return nil
		}
		if isAuthFailure(err) {
			continue
		}
		if isPushRejection(err) {
			return fmt.Errorf("%w: %v", metisdoc.ErrPushRejected, err)
		}
		return &metisdoc.PushFailedError{Reason: err.Error()}
	}
}

func isPushRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, transport.ErrRepositoryNotFound) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range pushRejectionSubstrings {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
