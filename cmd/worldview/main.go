package main

import (
	"os"

	"github.com/philo-kim/moniterdc-sub001/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
