// Package cmd provides common initialization helpers for the command-line
// entrypoints.
package cmd

import (
	"log/slog"

	"github.com/botweaver/botweaver/pkg/actions/httprequest"
	logaction "github.com/botweaver/botweaver/pkg/actions/log"
	"github.com/botweaver/botweaver/pkg/actions/sendmessage"
	"github.com/botweaver/botweaver/pkg/registry"
)

// NewRegistry builds the action registry with every built-in action.
// The send_message action is only registered when a stream publisher is
// available; without one workflows using it fail validation at execution
// time with an unknown action error.
func NewRegistry(logger *slog.Logger, publisher sendmessage.StreamPublisher) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(logaction.NewActionFactory())
	reg.RegisterAction(httprequest.NewActionFactory())

	if publisher != nil {
		reg.RegisterAction(sendmessage.NewActionFactory(publisher))
	}

	return reg
}
