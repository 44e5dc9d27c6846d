package main

import (
	"github.com/gpustore/backend/internal/app"
	"github.com/gpustore/backend/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
