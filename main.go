package main

import "ArtistHub/cmd"

func main() {
	cmd.Execute()
}
