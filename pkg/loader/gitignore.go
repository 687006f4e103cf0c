package loader

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// StateIgnorePattern is the .gitignore entry covering viewer state files.
const StateIgnorePattern = ".rowgrid/*.json"

// EnsureStateIgnored ensures that rowgrid's state files are listed in the
// project's .gitignore, so saved group state stays out of the repository.
// It creates .gitignore when missing and is safe to call repeatedly.
func EnsureStateIgnored(projectDir string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	gitignorePath := filepath.Join(projectDir, ".gitignore")

	alreadyPresent, err := isStateIgnored(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if alreadyPresent {
		return nil
	}
	return appendToGitignore(gitignorePath, StateIgnorePattern)
}

// isStateIgnored checks whether a line of the .gitignore already covers
// the state files.
func isStateIgnored(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coversState(line) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func coversState(line string) bool {
	normalized := strings.TrimPrefix(line, "/")
	switch normalized {
	case ".rowgrid", ".rowgrid/", ".rowgrid/*", ".rowgrid/**", StateIgnorePattern:
		return true
	}
	return false
}

// appendToGitignore appends pattern, creating the file if needed and
// keeping a blank line between existing content and the new entry.
func appendToGitignore(path string, pattern string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	var toWrite string
	if len(content) == 0 {
		toWrite = "# rowgrid viewer state\n" + pattern + "\n"
	} else {
		if content[len(content)-1] != '\n' {
			toWrite = "\n"
		}
		toWrite += "\n# rowgrid viewer state\n" + pattern + "\n"
	}

	_, err = file.WriteString(toWrite)
	return err
}
