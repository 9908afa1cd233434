// Package gitrepo runs git operations against one working copy and returns
// their human-readable output.
//
// Client is the production implementation of the version-control capability
// consumed by repository.Repository. It requires the git command in $PATH.
package gitrepo
