package main

import (
	"context"
	"os"

	"github.com/gitship/gitship/internal/gitship"
)

func main() {
	os.Exit(gitship.Execute(context.Background()))
}
