package main

import (
	"github.com/ColonelBlimp/cwtone/cmd"
	"github.com/ColonelBlimp/cwtone/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
