package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	httpsProtocolPrefixConstant         = "https://"
	httpProtocolPrefixConstant          = "http://"
	sshUserDelimiterConstant            = "@"
	sshPathDelimiterConstant            = ":"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	requiredValueMessageConstant        = "value required"
	minimumPathSegmentsConstant         = 2
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
)

// RemoteURL represents a structured git remote URL. Owner may contain nested
// namespaces (GitLab subgroups) separated by slashes.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// FullName returns the owner/repository identifier used by hosting APIs.
func (remote RemoteURL) FullName() string {
	return remote.Owner + pathSeparatorConstant + remote.Repository
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRemoteURL converts a textual remote URL (scp-like, ssh:// or http(s)://) into a structured representation.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		return parseHierarchicalRemote(strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant), RemoteProtocolSSH, remote)
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		return parseHierarchicalRemote(strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant), RemoteProtocolHTTPS, remote)
	case strings.HasPrefix(trimmedRemote, httpProtocolPrefixConstant):
		return parseHierarchicalRemote(strings.TrimPrefix(trimmedRemote, httpProtocolPrefixConstant), RemoteProtocolHTTPS, remote)
	case strings.Contains(trimmedRemote, sshUserDelimiterConstant) && strings.Contains(trimmedRemote, sshPathDelimiterConstant):
		return parseScpLikeRemote(trimmedRemote, remote)
	default:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
}

// parseHierarchicalRemote handles "[user[:password]@]host[:port]/owner/.../repository[.git]".
func parseHierarchicalRemote(remainder string, protocol RemoteProtocol, originalInput string) (RemoteURL, error) {
	if userIndex := strings.Index(remainder, sshUserDelimiterConstant); userIndex != -1 {
		slashIndex := strings.Index(remainder, pathSeparatorConstant)
		if slashIndex == -1 || userIndex < slashIndex {
			remainder = remainder[userIndex+1:]
		}
	}

	slashIndex := strings.Index(remainder, pathSeparatorConstant)
	if slashIndex <= 0 {
		return RemoteURL{}, RemoteURLParseError{Input: originalInput, Message: invalidRemoteURLMessageConstant}
	}

	host := remainder[:slashIndex]
	if portIndex := strings.Index(host, sshPathDelimiterConstant); portIndex != -1 {
		host = host[:portIndex]
	}

	owner, repository, splitError := splitOwnerAndRepository(remainder[slashIndex+1:], originalInput)
	if splitError != nil {
		return RemoteURL{}, splitError
	}
	return RemoteURL{Protocol: protocol, Host: host, Owner: owner, Repository: repository}, nil
}

// parseScpLikeRemote handles "git@host:owner/repository.git".
func parseScpLikeRemote(remote string, originalInput string) (RemoteURL, error) {
	hostAndPath := remote[strings.Index(remote, sshUserDelimiterConstant)+1:]
	pathSplitIndex := strings.Index(hostAndPath, sshPathDelimiterConstant)
	if pathSplitIndex <= 0 {
		return RemoteURL{}, RemoteURLParseError{Input: originalInput, Message: invalidRemoteURLMessageConstant}
	}

	owner, repository, splitError := splitOwnerAndRepository(hostAndPath[pathSplitIndex+1:], originalInput)
	if splitError != nil {
		return RemoteURL{}, splitError
	}
	return RemoteURL{Protocol: RemoteProtocolSSH, Host: hostAndPath[:pathSplitIndex], Owner: owner, Repository: repository}, nil
}

func splitOwnerAndRepository(path string, originalInput string) (string, string, error) {
	trimmedPath := strings.Trim(strings.TrimSuffix(strings.TrimSpace(path), pathSeparatorConstant), pathSeparatorConstant)
	segments := strings.Split(trimmedPath, pathSeparatorConstant)
	if len(segments) < minimumPathSegmentsConstant {
		return "", "", RemoteURLParseError{Input: originalInput, Message: invalidRemoteURLMessageConstant}
	}

	for _, segment := range segments {
		if len(segment) == 0 {
			return "", "", RemoteURLParseError{Input: originalInput, Message: invalidRemoteURLMessageConstant}
		}
	}

	repository := strings.TrimSuffix(segments[len(segments)-1], gitSuffixConstant)
	if len(repository) == 0 {
		return "", "", RemoteURLParseError{Input: originalInput, Message: invalidRemoteURLMessageConstant}
	}

	return strings.Join(segments[:len(segments)-1], pathSeparatorConstant), repository, nil
}
