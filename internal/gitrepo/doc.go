// Package gitrepo contains helpers for interrogating cloned Git repositories.
//
// RepositoryManager reads commit history, tracked files, and remotes through
// the execshell executor; ParseRemoteURL turns an origin URL into the
// host and full name expected by the hosting APIs.
package gitrepo
