package post

import (
	"strings"

	"feed/internal/common"
)

func validateUserName(userName string) (string, error) {
	trimmed := strings.TrimSpace(userName)
	if trimmed == "" {
		return "", common.ValidationError(nil, "userName is empty")
	}
	return trimmed, nil
}

func validateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", common.ValidationError(nil, "content is empty")
	}
	return trimmed, nil
}

// validateEntry checks the author and body of a new post or comment.
func validateEntry(userName, content string) (string, string, error) {
	userName, err := validateUserName(userName)
	if err != nil {
		return "", "", err
	}
	content, err = validateContent(content)
	if err != nil {
		return "", "", err
	}
	return userName, content, nil
}
