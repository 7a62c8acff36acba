package events

import (
	"fmt"

	"github.com/google/uuid"
)

// NewThreadID returns a globally unique thread identifier. The prefix keeps
// identifiers recognizable in logs without sacrificing uniqueness.
func NewThreadID() string { return fmt.Sprintf("thread-%s", uuid.NewString()) }

// NewRunID returns a globally unique run identifier.
func NewRunID() string { return fmt.Sprintf("run-%s", uuid.NewString()) }

// NewMessageID returns a globally unique message identifier.
func NewMessageID() string { return fmt.Sprintf("msg-%s", uuid.NewString()) }

// NewToolCallID returns a globally unique tool call identifier.
func NewToolCallID() string { return fmt.Sprintf("call-%s", uuid.NewString()) }
