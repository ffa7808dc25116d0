package main

import "github.com/oshokin/safety-monitor/cmd/alert-server/cmd"

func main() {
	cmd.Execute()
}
