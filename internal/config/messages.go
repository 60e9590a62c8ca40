package config

import (
	"fmt"
	"strings"
)

const (
	errInvalidConfigurationFmt = "invalid configuration: %s"
	problemSeparator           = "; "
)

type messageBuilders struct {
	invalidConfiguration func([]string) string
}

func newMessageBuilders() messageBuilders {
	return messageBuilders{
		invalidConfiguration: func(problems []string) string {
			return fmt.Sprintf(errInvalidConfigurationFmt, strings.Join(problems, problemSeparator))
		},
	}
}

var messages = newMessageBuilders()
