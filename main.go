package main

import (
	"os"

	"github.com/htol/calibre-export/app"
)

func main() {
	os.Exit(app.CLI(os.Args[1:]))
}
