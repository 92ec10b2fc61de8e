package main

import "github.com/scottsaenz/child-allowance-tracker/pkg/cli"

func main() {
	cli.Execute()
}
