package main

import (
	"context"
	"obsgrades/cmd/obsgrades/commands"
	"obsgrades/internal/components/serviceutil"
)

func main() {
	ctx, stop := serviceutil.SignalContext(context.Background())
	defer stop()
	commands.ExecuteContext(ctx)
}
