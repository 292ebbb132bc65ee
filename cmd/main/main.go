package main

import "github.com/Another0Noob/mangadex-progress/cmd"

func main() {
	cmd.Execute()
}
