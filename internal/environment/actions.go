package environment

import (
	"context"
	"strings"

	"github.com/vk/gridci/internal/ctxlog"
)

// setupToolchain is the built-in "toolchain" setup action. It records the
// requested toolchain on the environment and exports it to subsequent
// steps; the actual installer the commands invoke is an external concern.
//
// Recognized options (enforced by config.Validate before execution):
//
//	profile    - installation profile, e.g. "minimal"
//	toolchain  - version channel, e.g. "stable"
//	components - extra components to install
func setupToolchain(ctx context.Context, env *Environment, options map[string]any) error {
	logger := ctxlog.FromContext(ctx)

	channel := "stable"
	if v, ok := options["toolchain"].(string); ok {
		channel = v
	}
	env.Env["GRIDCI_TOOLCHAIN"] = channel
	env.Tools["toolchain"] = channel

	if v, ok := options["profile"].(string); ok {
		env.Env["GRIDCI_TOOLCHAIN_PROFILE"] = v
	}
	if v, ok := options["components"].([]string); ok && len(v) > 0 {
		env.Env["GRIDCI_TOOLCHAIN_COMPONENTS"] = strings.Join(v, ",")
	}

	logger.Debug("Toolchain configured.", "instance", env.InstanceID, "channel", channel)
	return nil
}
