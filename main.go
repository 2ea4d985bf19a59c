package main

import "kucukaslan/activity/cmd"

func main() {
	cmd.Execute()
}
