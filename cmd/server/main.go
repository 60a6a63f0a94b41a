package main

import "github.com/comilla/site-backend/cmd/server/cmd"

func main() {
	cmd.Execute()
}
