package hosting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

const (
	// EnvironmentGitHubAccessToken holds the GitHub token.
	EnvironmentGitHubAccessToken = "GITHUB_ACCESS_TOKEN"
	// EnvironmentGitLabAccessToken holds the GitLab token.
	EnvironmentGitLabAccessToken = "GITLAB_ACCESS_TOKEN"

	tokenSourceSeparatorConstant               = ":"
	environmentTokenSourceTypeValueConstant    = "env"
	fileTokenSourceTypeValueConstant           = "file"
	environmentNameMissingErrorMessageConstant = "environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "token file path must be provided"
	environmentTokenMissingTemplateConstant    = "environment variable %s is not set"
	fileReadErrorTemplateConstant              = "unable to read token file %s: %w"
	fileTokenEmptyErrorTemplateConstant        = "token file %s is empty"
	unsupportedTokenSourceTemplateConstant     = "unsupported token source type %q"
	environmentFileErrorTemplateConstant       = "unable to read environment file %s: %w"
	tokenUnavailableTemplateConstant           = "%w: pass --token or set %s"
	promptReadErrorTemplateConstant            = "unable to read access token: %w"
	githubPromptLabelConstant                  = "GitHub access token: "
	gitlabPromptLabelConstant                  = "GitLab access token: "
	tokenUnavailableMessageConstant            = "access token not provided"
	promptUnavailableMessageConstant           = "standard input is not a terminal"
)

// ErrTokenUnavailable reports that no resolution step produced a token.
var ErrTokenUnavailable = errors.New(tokenUnavailableMessageConstant)

// ErrPromptUnavailable reports that interactive prompting is not possible.
var ErrPromptUnavailable = errors.New(promptUnavailableMessageConstant)

// TokenSourceType enumerates the supported token retrieval mechanisms.
type TokenSourceType string

// Token source type enumerations.
const (
	TokenSourceTypeEnvironment TokenSourceType = TokenSourceType(environmentTokenSourceTypeValueConstant)
	TokenSourceTypeFile        TokenSourceType = TokenSourceType(fileTokenSourceTypeValueConstant)
)

// TokenSourceConfiguration specifies how to locate a credentials token.
type TokenSourceConfiguration struct {
	Type      TokenSourceType
	Reference string
}

// ParseTokenSource interprets declarations such as env:NAME or file:/path. A bare value names
// an environment variable.
func ParseTokenSource(sourceValue string) (TokenSourceConfiguration, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	components := strings.SplitN(trimmedValue, tokenSourceSeparatorConstant, 2)
	if len(components) == 1 {
		if len(trimmedValue) == 0 {
			return TokenSourceConfiguration{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return TokenSourceConfiguration{Type: TokenSourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch sourceType {
	case environmentTokenSourceTypeValueConstant:
		if len(reference) == 0 {
			return TokenSourceConfiguration{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return TokenSourceConfiguration{Type: TokenSourceTypeEnvironment, Reference: reference}, nil
	case fileTokenSourceTypeValueConstant:
		if len(reference) == 0 {
			return TokenSourceConfiguration{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return TokenSourceConfiguration{Type: TokenSourceTypeFile, Reference: reference}, nil
	default:
		return TokenSourceConfiguration{}, fmt.Errorf(unsupportedTokenSourceTemplateConstant, sourceType)
	}
}

// EnvironmentVariable returns the variable consulted for host tokens.
func EnvironmentVariable(host Host) string {
	if host == HostGitLab {
		return EnvironmentGitLabAccessToken
	}
	return EnvironmentGitHubAccessToken
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// SecretPrompter asks the user for a secret without echoing it.
type SecretPrompter interface {
	PromptSecret(label string) (string, error)
}

// TerminalPrompter prompts on a terminal attached to Input.
type TerminalPrompter struct {
	Input  *os.File
	Output io.Writer
}

// PromptSecret reads a line with echo disabled. It returns ErrPromptUnavailable when Input is
// not a terminal.
func (prompter TerminalPrompter) PromptSecret(label string) (string, error) {
	input := prompter.Input
	if input == nil {
		input = os.Stdin
	}
	output := prompter.Output
	if output == nil {
		output = os.Stderr
	}

	fileDescriptor := int(input.Fd())
	if !term.IsTerminal(fileDescriptor) {
		return "", ErrPromptUnavailable
	}

	fmt.Fprint(output, label)
	secretBytes, readError := term.ReadPassword(fileDescriptor)
	fmt.Fprintln(output)
	if readError != nil {
		return "", fmt.Errorf(promptReadErrorTemplateConstant, readError)
	}
	return strings.TrimSpace(string(secretBytes)), nil
}

// TokenRequest describes where a token may come from, in decreasing precedence.
type TokenRequest struct {
	Host            Host
	ExplicitToken   string
	TokenSource     string
	EnvironmentFile string
}

// TokenResolver walks the token resolution chain.
type TokenResolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
	prompter          SecretPrompter
}

// NewTokenResolver creates a resolver; nil dependencies fall back to the process environment,
// os.ReadFile and a TerminalPrompter on standard input.
func NewTokenResolver(environmentLookup EnvironmentLookup, fileReader FileReader, prompter SecretPrompter) *TokenResolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	if prompter == nil {
		prompter = TerminalPrompter{Input: os.Stdin, Output: os.Stderr}
	}
	return &TokenResolver{environmentLookup: environmentLookup, fileReader: fileReader, prompter: prompter}
}

// Resolve returns the first token found among the explicit value, the configured source, the
// host environment variable (the environment file only fills variables the environment lacks),
// and an interactive prompt.
func (resolver *TokenResolver) Resolve(ctx context.Context, request TokenRequest) (string, error) {
	if explicitToken := strings.TrimSpace(request.ExplicitToken); len(explicitToken) > 0 {
		return explicitToken, nil
	}

	if len(strings.TrimSpace(request.TokenSource)) > 0 {
		source, parseError := ParseTokenSource(request.TokenSource)
		if parseError != nil {
			return "", parseError
		}
		return resolver.ResolveSource(ctx, source)
	}

	variableName := EnvironmentVariable(request.Host)
	if value, found := resolver.environmentLookup(variableName); found && len(strings.TrimSpace(value)) > 0 {
		return strings.TrimSpace(value), nil
	}

	environmentFileValues, environmentFileError := readEnvironmentFile(request.EnvironmentFile)
	if environmentFileError != nil {
		return "", environmentFileError
	}
	if value := strings.TrimSpace(environmentFileValues[variableName]); len(value) > 0 {
		return value, nil
	}

	promptedToken, promptError := resolver.prompter.PromptSecret(promptLabel(request.Host))
	if promptError != nil {
		if errors.Is(promptError, ErrPromptUnavailable) {
			return "", fmt.Errorf(tokenUnavailableTemplateConstant, ErrTokenUnavailable, variableName)
		}
		return "", promptError
	}
	if len(promptedToken) == 0 {
		return "", fmt.Errorf(tokenUnavailableTemplateConstant, ErrTokenUnavailable, variableName)
	}
	return promptedToken, nil
}

// ResolveSource reads a token from a parsed source declaration.
func (resolver *TokenResolver) ResolveSource(ctx context.Context, source TokenSourceConfiguration) (string, error) {
	if contextError := ctx.Err(); contextError != nil {
		return "", contextError
	}
	switch source.Type {
	case TokenSourceTypeEnvironment:
		value, found := resolver.environmentLookup(source.Reference)
		trimmedValue := strings.TrimSpace(value)
		if !found || len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	case TokenSourceTypeFile:
		contents, readError := resolver.fileReader(source.Reference)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, source.Reference, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(fileTokenEmptyErrorTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	default:
		return "", fmt.Errorf(unsupportedTokenSourceTemplateConstant, source.Type)
	}
}

func readEnvironmentFile(path string) (map[string]string, error) {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return nil, nil
	}
	values, readError := godotenv.Read(trimmedPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(environmentFileErrorTemplateConstant, trimmedPath, readError)
	}
	return values, nil
}

func promptLabel(host Host) string {
	if host == HostGitLab {
		return gitlabPromptLabelConstant
	}
	return githubPromptLabelConstant
}
