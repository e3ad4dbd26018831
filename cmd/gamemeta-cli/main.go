package main

import (
	"gamemeta-backend/cmd/gamemeta-cli/commands"
	"gamemeta-backend/lib/telemetry"
	"gamemeta-backend/lib/util/serviceutil"
)

func main() {
	telemetry.InitSlog(false)
	commands.ExecuteContext(serviceutil.SignalContext())
}
