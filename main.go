package main

import "meraki-sync/cmd"

func main() {
	cmd.Execute()
}
