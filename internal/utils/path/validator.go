package pathutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	invalidPathMessageConstant         = "insert a valid path"
	invalidPathErrorTemplateConstant   = "%s: %s"
	pathKindDirectoryDescriptionString = "directory"
	pathKindFileDescriptionString      = "file"
)

// InvalidPathError reports a path that does not name an existing file or directory of the expected kind.
type InvalidPathError struct {
	Path         string
	ExpectedKind string
}

// Error describes the invalid path.
func (pathError InvalidPathError) Error() string {
	return fmt.Sprintf(invalidPathErrorTemplateConstant, invalidPathMessageConstant, pathError.Path)
}

// PathValidator resolves user supplied paths and checks they exist.
type PathValidator struct {
	homeExpander *HomeExpander
}

// NewPathValidator constructs a PathValidator that expands leading tildes.
func NewPathValidator() *PathValidator {
	return &PathValidator{homeExpander: NewHomeExpander()}
}

// NewPathValidatorWithExpander constructs a PathValidator using the provided expander.
func NewPathValidatorWithExpander(expander *HomeExpander) *PathValidator {
	if expander == nil {
		expander = NewHomeExpander()
	}
	return &PathValidator{homeExpander: expander}
}

// ExistingDirectory returns the cleaned path when it names an existing directory.
func (validator *PathValidator) ExistingDirectory(candidatePath string) (string, error) {
	resolvedPath := validator.resolve(candidatePath)
	if len(resolvedPath) == 0 {
		return "", InvalidPathError{Path: candidatePath, ExpectedKind: pathKindDirectoryDescriptionString}
	}
	fileInfo, statError := os.Stat(resolvedPath)
	if statError != nil || !fileInfo.IsDir() {
		return "", InvalidPathError{Path: candidatePath, ExpectedKind: pathKindDirectoryDescriptionString}
	}
	return resolvedPath, nil
}

// ExistingFile returns the cleaned path when it names an existing regular file.
func (validator *PathValidator) ExistingFile(candidatePath string) (string, error) {
	resolvedPath := validator.resolve(candidatePath)
	if len(resolvedPath) == 0 {
		return "", InvalidPathError{Path: candidatePath, ExpectedKind: pathKindFileDescriptionString}
	}
	fileInfo, statError := os.Stat(resolvedPath)
	if statError != nil || !fileInfo.Mode().IsRegular() {
		return "", InvalidPathError{Path: candidatePath, ExpectedKind: pathKindFileDescriptionString}
	}
	return resolvedPath, nil
}

func (validator *PathValidator) resolve(candidatePath string) string {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return ""
	}
	expander := validator.homeExpander
	if expander == nil {
		expander = NewHomeExpander()
	}
	return filepath.Clean(expander.Expand(trimmedPath))
}
