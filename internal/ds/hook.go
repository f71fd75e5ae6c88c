package ds

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandHook runs an external script with the document path as its only argument.
type CommandHook struct {
	Script string
	Dir    string
	logger Logger
}

func NewCommandHook(script, dir string, logger Logger) *CommandHook {
	return &CommandHook{Script: script, Dir: dir, logger: logger}
}

func (h *CommandHook) Run(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, h.Script, path)
	cmd.Dir = h.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("running %s: %w: %s", h.Script, err, strings.TrimSpace(string(out)))
	}
	h.logger.Debug("post-process hook finished", "script", h.Script, "path", path, "output", strings.TrimSpace(string(out)))
	return nil
}
