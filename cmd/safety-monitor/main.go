package main

import "github.com/oshokin/safety-monitor/cmd/safety-monitor/cmd"

func main() {
	cmd.Execute()
}
