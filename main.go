package main

import (
	"context"
	"os"

	"github.com/yaklabco/zoar/cmd/zoar"
	"github.com/yaklabco/zoar/pkg/fault"
)

func main() {
	os.Exit(actualMain())
}

func actualMain() int {
	ctx := context.Background()

	rootCmd := zoar.NewRootCmd(ctx)

	return fault.ExitStatus(zoar.ExecuteWithFang(ctx, rootCmd))
}
